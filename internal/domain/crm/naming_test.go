package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFirst string
		wantLast  string
	}{
		{"two words", "Jane Smith", "Jane", "Smith"},
		{"single word", "Cher", "Cher", ""},
		{"empty", "", "", ""},
		{"three words keeps remainder", "Mary Ann Smith", "Mary", "Ann Smith"},
		{"double space keeps inner whitespace", "John  Doe", "John", " Doe"},
		{"tab is not a separator", "John\tDoe", "John\tDoe", ""},
		{"no-break space is not a separator", "Zoë\u00a0Ng", "Zoë\u00a0Ng", ""},
		{"non-ascii letters", "Zoë Ng", "Zoë", "Ng"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitName(tt.input)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

func TestNormalizeAccountName(t *testing.T) {
	assert.Equal(t, "John", NormalizeAccountName("John "))
	assert.Equal(t, "John\tDoe", NormalizeAccountName("\tJohn\tDoe "))
	assert.Equal(t, "John  Doe", NormalizeAccountName("John  Doe"))
}

func TestJoinName_ConvergesWithSplit(t *testing.T) {
	for _, raw := range []string{"Jane Smith", "Mary Ann Smith", "John  Doe", "Cher", "John\tDoe", "John ", " John Doe\n"} {
		name := NormalizeAccountName(raw)
		first, last := SplitName(name)
		assert.Equal(t, name, JoinName(first, last), "%q", raw)
	}

	assert.Equal(t, "Johnny", JoinName("Johnny", ""))
	assert.Equal(t, "Johnny Doe", JoinName("Johnny", "Doe"))
}
