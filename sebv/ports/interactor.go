package ports

// Interactor is the user facing surface of the command line front end:
// messages, progress and the prompts that replace file pickers.
type Interactor interface {
	Output(message string)
	Warning(message string)
	Error(message string, err error)
	StartSpinner(message string)
	StopSpinner(success bool, message string)

	// SelectDirectory asks for a directory; false means the user declined.
	SelectDirectory(prompt string) (string, bool)
	// SelectFile asks for an existing file; false means the user declined.
	SelectFile(prompt string) (string, bool)
	// Confirm asks a yes/no question, returning def on empty input.
	Confirm(prompt string, def bool) bool
}
