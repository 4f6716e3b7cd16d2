package match

import "github.com/frjnn/wordquizzle/internal/model"

// winnerBonus is granted on top when the totals differ.
const winnerBonus = 3

// scoreAnswers scores every answered word: +2 for an exact match against
// any acceptable translation, 0 for a skipped (empty) answer, -1 for
// anything else. idx is the player's final word index; idx-1 words were
// answered.
func scoreAnswers(cards []model.WordCard, answers []string, idx int) int {
	answered := min(idx-1, len(cards))
	score := 0
	for i := 0; i < answered; i++ {
		switch {
		case cards[i].Accepts(answers[i]):
			score += 2
		case answers[i] == "":
			// skipped
		default:
			score--
		}
	}
	return score
}

// applyBonus grants the winner bonus when the scores differ and names
// both outcomes.
func applyBonus(chal, chld int) (int, int, string, string) {
	switch {
	case chal > chld:
		return chal + winnerBonus, chld, "won", "lost"
	case chld > chal:
		return chal, chld + winnerBonus, "lost", "won"
	default:
		return chal, chld, "drew", "drew"
	}
}
