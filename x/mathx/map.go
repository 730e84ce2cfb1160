package mathx

// MapU16 maps x in [inMin,inMax] to [outMin,outMax] with 32-bit intermediates.
// Clamps to out range if input is outside.
func MapU16(x, inMin, inMax, outMin, outMax uint16) uint16 {
	if inMax == inMin {
		return outMin
	}
	// Clamp input first to avoid over/underflow in multiply.
	if x < inMin {
		return outMin
	}
	if x > inMax {
		return outMax
	}
	num := uint32(x-inMin) * uint32(outMax-outMin)
	den := uint32(inMax - inMin)
	return uint16(uint32(outMin) + num/den)
}

// MapU16Inv maps like MapU16 but with the output range reversed, for sensors
// whose raw value falls as the measured quantity rises (capacitive soil probes).
func MapU16Inv(x, inMin, inMax, outMin, outMax uint16) uint16 {
	return outMax - MapU16(x, inMin, inMax, outMin, outMax) + outMin
}
