package scan

// DefaultNameRunMin is the shortest letter run treated as a concatenated
// name blob.
const DefaultNameRunMin = 200

// Run is a maximal stretch of name letters, i.e. a blob of concatenated
// names with no separators.
type Run struct {
	Offset int
	Text   string
}

// runBytes marks A-Z a-z ' -, the characters a blob is made of.
var runBytes = func() [256]bool {
	var t [256]bool
	for c := 'A'; c <= 'Z'; c++ {
		t[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		t[c] = true
	}
	t['\''] = true
	t['-'] = true
	return t
}()

// NameRuns returns every maximal run of [A-Za-z'-] bytes at least minRun
// bytes long, in offset order.
func NameRuns(buf []byte, minRun int) []Run {
	if minRun < 1 {
		minRun = DefaultNameRunMin
	}
	var out []Run
	start := -1
	for i := 0; i <= len(buf); i++ {
		if i < len(buf) && runBytes[buf[i]] {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minRun {
			out = append(out, Run{Offset: start, Text: string(buf[start:i])})
		}
		start = -1
	}
	return out
}
