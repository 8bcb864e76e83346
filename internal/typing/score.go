package typing

import (
	"math"
	"strings"
	"unicode"

	"github.com/verte-zerg/typegate/internal/model"
)

// WPM is always computed over this many minutes, whatever the elapsed time.
const wpmMinutes = 10

// SplitSentences cuts text after '.', '!' or '?' when followed by
// whitespace. Fragments are trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = appendTrimmed(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = appendTrimmed(out, string(runes[start:]))
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func appendTrimmed(out []string, fragment string) []string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return out
	}
	return append(out, fragment)
}

// CompareSentence runs the positional diff of typed against original.
// Characters past the end of original are all errors.
func CompareSentence(original, typed string) (correct, errs int) {
	o := []rune(original)
	t := []rune(typed)
	n := min(len(o), len(t))
	for i := 0; i < n; i++ {
		if o[i] == t[i] {
			correct++
		} else {
			errs++
		}
	}
	if len(t) > len(o) {
		errs += len(t) - len(o)
	}
	return correct, errs
}

// Score computes stats for parallel sentences and inputs. totalChars is the
// generated content length, so accuracy reflects how far the user got.
func Score(sentences, inputs []string, totalChars int) model.Stats {
	stats := model.Stats{TotalChars: totalChars}
	for i, original := range sentences {
		typed := ""
		if i < len(inputs) {
			typed = inputs[i]
		}
		c, e := CompareSentence(original, typed)
		stats.CorrectChars += c
		stats.ErrorChars += e
	}
	stats.WPM = int(math.Round((float64(stats.CorrectChars) / 5.0) / wpmMinutes))
	if totalChars > 0 {
		stats.AccuracyPercent = int(math.Round(float64(stats.CorrectChars) / float64(totalChars) * 100))
	}
	return stats
}

// ReviewSentence tags every typed character Correct or Error by position.
func ReviewSentence(index int, original, typed string) model.ReviewLine {
	o := []rune(original)
	t := []rune(typed)
	verdicts := make([]model.CharVerdict, 0, len(t))
	for i, r := range t {
		v := model.Error
		if i < len(o) && o[i] == r {
			v = model.Correct
		}
		verdicts = append(verdicts, model.CharVerdict{Char: r, Verdict: v})
	}
	return model.ReviewLine{
		SentenceIndex: index,
		Original:      original,
		Typed:         typed,
		CharVerdicts:  verdicts,
	}
}
