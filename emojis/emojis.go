package emojis

import "strconv"

var list = map[string]string{
	"0":  `0⃣`,
	"1":  `1⃣`,
	"2":  `2⃣`,
	"3":  `3⃣`,
	"4":  `4⃣`,
	"5":  `5⃣`,
	"6":  `6⃣`,
	"7":  `7⃣`,
	"8":  `8⃣`,
	"9":  `9⃣`,
	"10": `🔟`,
}

var medals = []string{`🥇`, `🥈`, `🥉`}

// From returns the unicode emoji code for the symbol
func From(symbol string) string {
	return list[symbol]
}

// Rank is the emoji shown in front of the n-th entry of a ranking, starting at 1.
// Places without an emoji are written as #n.
func Rank(n int) string {
	if n >= 1 && n <= len(medals) {
		return medals[n-1]
	}
	if emoji, ok := list[strconv.Itoa(n)]; ok && n > 0 {
		return emoji
	}
	return "#" + strconv.Itoa(n)
}
