package resource

// pearsonTable is the fixed permutation of 0..255 baked into the "TEX "
// payload format. Writers and readers must use the same table or every
// texture fails its hash check.
var pearsonTable = [256]uint8{
	216, 112, 222, 186, 116, 52, 139, 224, 183, 27, 246, 72, 68, 60, 101, 149,
	254, 134, 100, 29, 137, 104, 26, 58, 39, 253, 229, 238, 40, 228, 203, 30,
	32, 102, 57, 177, 179, 128, 115, 245, 252, 65, 64, 13, 11, 81, 195, 33,
	50, 138, 156, 255, 51, 87, 1, 85, 105, 221, 5, 148, 136, 217, 113, 167,
	2, 125, 160, 107, 172, 191, 131, 181, 23, 120, 230, 233, 48, 17, 169, 89,
	19, 154, 44, 63, 198, 178, 194, 226, 219, 144, 73, 142, 123, 22, 109, 135,
	214, 244, 250, 124, 127, 97, 145, 180, 130, 84, 241, 31, 173, 122, 223, 150,
	79, 163, 240, 12, 83, 108, 192, 152, 176, 37, 75, 43, 103, 162, 94, 82,
	76, 211, 147, 227, 171, 164, 206, 28, 140, 49, 95, 161, 71, 16, 189, 207,
	18, 218, 165, 35, 237, 236, 185, 119, 225, 77, 7, 166, 118, 168, 4, 36,
	251, 143, 243, 133, 56, 153, 184, 111, 209, 129, 231, 121, 146, 15, 157, 114,
	220, 91, 196, 174, 10, 202, 41, 126, 34, 86, 201, 204, 59, 210, 158, 159,
	61, 62, 117, 80, 25, 70, 155, 3, 239, 9, 42, 88, 78, 45, 74, 110,
	92, 90, 67, 175, 197, 96, 141, 249, 212, 232, 20, 55, 21, 132, 8, 106,
	200, 53, 213, 234, 99, 199, 235, 54, 14, 190, 93, 47, 69, 182, 205, 215,
	193, 187, 66, 151, 170, 0, 24, 6, 46, 242, 188, 98, 247, 208, 248, 38,
}

// pearson8 computes the 8-bit Pearson hash of data. It detects payload
// corruption; it is not a cryptographic digest.
func pearson8(data []byte) uint8 {
	var h uint8
	for _, b := range data {
		h = pearsonTable[h^b]
	}
	return h
}
