package pkg

type Action string

const (
	ActionResignPrompt Action = "Resign"
	ActionResignYes    Action = "Yes"
	ActionResignNo     Action = "No"
	ActionForfeit      Action = "Forfeit"
	ActionExit         Action = "Exit"
	ActionWin          Action = "Win"
	ActionLose         Action = "Lose"
	ActionDraw         Action = "Draw"
)
