package wordlist

import "github.com/verte-zerg/worddrop/internal/model"

// LettersOnly keeps words made of ASCII letters. Every position of such a
// word can be blanked and typed back.
func LettersOnly(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') {
			return false
		}
	}
	return true
}

// InferDifficulty guesses a tier from word length for sources that carry none.
func InferDifficulty(word string) model.Difficulty {
	switch n := len(word); {
	case n <= 4:
		return model.DifficultyEasy
	case n <= 7:
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}
