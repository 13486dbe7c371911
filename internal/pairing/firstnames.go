package pairing

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FirstNames is a set of known first names in capitalised form.
type FirstNames map[string]struct{}

var defaultFirstNames = []string{
	// UK/IE
	"Alan", "Alastair", "Alex", "Andrew", "Anthony", "Barry", "Ben", "Billy", "Brian", "Callum", "Carl",
	"Charlie", "Chris", "Colin", "Craig", "Darren", "David", "Dean", "Derek", "Duncan", "Eddie", "Euan",
	"Gavin", "Gordon", "Graham", "Grant", "Gary", "George", "Harry", "Iain", "Ian", "Jack", "James", "Jamie",
	"Jason", "John", "Jordan", "Kevin", "Kyle", "Lee", "Lewis", "Liam", "Mark", "Martin", "Matt", "Matthew",
	"Michael", "Mick", "Neil", "Niall", "Nick", "Paul", "Peter", "Robert", "Rob", "Ross", "Ryan", "Sam",
	"Scott", "Sean", "Simon", "Steven", "Stephen", "Stuart", "Thomas", "Tom", "Tony", "Will", "William",
	// continental
	"Adrian", "Alberto", "Alejandro", "Andreas", "Anton", "Antonio", "Carlos", "Cesar", "Cristian", "Daniel",
	"Diego", "Emil", "Erik", "Fabio", "Felipe", "Fernando", "Fran", "Francesco", "Henrik", "Ivan", "Javier",
	"Joao", "Johan", "Jose", "Juan", "Julian", "Karel", "Luca", "Marco", "Mario", "Miguel", "Nikola",
	"Oscar", "Pablo", "Pedro", "Rafael", "Ricardo", "Roberto", "Sergio", "Stefan", "Viktor",
}

// DefaultFirstNames returns a fresh set seeded with common first names.
func DefaultFirstNames() FirstNames {
	f := make(FirstNames, len(defaultFirstNames))
	for _, n := range defaultFirstNames {
		f.Add(n)
	}
	return f
}

// Add inserts name after capitalising it.
func (f FirstNames) Add(name string) {
	if name = Capitalize(strings.TrimSpace(name)); name != "" {
		f[name] = struct{}{}
	}
}

// Has reports whether name (already capitalised) is in the set.
func (f FirstNames) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Load adds one name per line from r. Blank lines and lines starting with
// '#' are ignored. It returns how many lines were added.
func (f FirstNames) Load(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f.Add(line)
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("pairing: read first names: %w", err)
	}
	return n, nil
}

// Capitalize upper-cases the first rune of s and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return ""
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
