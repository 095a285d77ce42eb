/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package narrator

// Line names a static narration line. The server owns their order; clients
// only play them back and report when playback finished.
type Line string

const (
	LineIntro        Line = "intro"
	LineAskP1Name    Line = "ask_p1_name"
	LineAskP2Name    Line = "ask_p2_name"
	LineMurderReveal Line = "murder_reveal"
	LineGameWon      Line = "game_won"
	LineGameLost     Line = "game_lost"
)

var script = map[Line]string{
	LineIntro:        "Welcome to The Parlor. I am Mrs. Hartwell. Thank you for coming on such short notice.",
	LineAskP1Name:    "Now then... what is your name, detective?",
	LineAskP2Name:    "A pleasure. And you, the other detective... your name?",
	LineMurderReveal: "Detectives, I must tell you why I've summoned you. My daughter Eleanor... was found dead in the garden this morning. Her throat... slit with a kitchen knife from my own kitchen. Last night, I hosted a dinner party. Three guests attended. I believe one of them killed my daughter. Dr. Marcus Webb, Eleanor's former fiance. Clara Finch, her childhood friend. And Henry Vance, my late husband's business partner. Please... help me find the monster who did this.",
	LineGameWon:      "Justice has been served. Dr. Webb will pay for what he has done to my Eleanor. Thank you, detectives. Thank you.",
	LineGameLost:     "No... that cannot be right. Please, detectives, think again. The killer still walks free.",
}

// Text returns the spoken text of l, or "" for an unknown line.
func (l Line) Text() string {
	return script[l]
}
