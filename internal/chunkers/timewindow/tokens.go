package timewindow

import "unicode/utf8"

// EstimateTokens approximates the model token count of text as one token
// per four characters, rounded up.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
