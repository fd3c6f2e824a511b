// xtoa.go implements functions for converting signed integer and floating
// point numbers into string representations, used when printing literal
// numeric source IR operands and target IR constants in diagnostics and
// textual dumps.
package xtoa

// ItoA converts a signed integer to its decimal ASCII representation.
func ItoA(i int) string {
	res := make([]byte, 32) // Signed 64-bit signed int: (2^64) - 1 is ~ 1,9e19 = 20 characters at most.
	var sign bool

	if i < 0 {
		sign = true
		i = -i
	}

	i1 := len(res) - 1

	for ; i1 >= 0 && i != 0; i1-- {
		res[i1] = byte((i % 10) + '0')
		i /= 10
	}
	if i1 == len(res)-1 {
		// i was zero to begin with.
		res[i1] = '0'
		i1--
	}

	if sign {
		res[i1] = '-'
		i1--
	}

	return string(res[i1+1:])
}

// FtoA converts a float to its decimal ASCII representation with 4-decimal
// precision.
func FtoA(f float32) string {
	res := make([]byte, 32)
	i1 := 0

	if f < 0 {
		f = -f
		res[0] = '-'
		i1++
	}

	ip := int(f)
	fp := f - float32(ip)

	tmp := ItoA(ip)
	copy(res[i1:], tmp)
	i1 += len(tmp)

	res[i1] = '.'
	i1++

	fp *= 10000
	tmp = ItoA(int(fp))
	for len(tmp) < 4 {
		tmp = "0" + tmp
	}
	copy(res[i1:], tmp)
	i1 += len(tmp)

	return string(res[:i1])
}
