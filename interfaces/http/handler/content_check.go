package handler

import "unicode/utf8"

// looksBinary does a cheap check on the leading bytes of an upload to reject
// binary files that slipped past the extension filter. Contract source is
// plain text, so null bytes or a high share of control characters mean the
// file is not something the pipeline should see.
func looksBinary(data []byte) bool {
	checkSize := 1000
	if len(data) < checkSize {
		checkSize = len(data)
	}

	// UTF-8 BOM is still text.
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return false
	}

	if checkSize < 32 {
		return false
	}

	nullCount := 0
	controlCount := 0
	for i := 0; i < checkSize; i++ {
		b := data[i]
		switch {
		case b == 0:
			nullCount++
		case b < 9 || (b > 13 && b < 32 && b != 27):
			controlCount++
		}
	}

	return nullCount > 0 || controlCount > checkSize/100
}

// validText reports whether the upload is valid, non-binary UTF-8.
func validText(data []byte) bool {
	return utf8.Valid(data) && !looksBinary(data)
}
