package pipeline

// Messages holds the user-facing reply texts
type Messages struct {
	Greeting       string `yaml:"greeting"`
	Acknowledge    string `yaml:"acknowledge"`
	InvalidLink    string `yaml:"invalid_link"`
	NotFound       string `yaml:"not_found"`
	DownloadFailed string `yaml:"download_failed"`
	GenericError   string `yaml:"generic_error"`
	Unauthorized   string `yaml:"unauthorized"`
	UnknownCommand string `yaml:"unknown_command"`
}

// DefaultMessages returns the stock reply texts
func DefaultMessages() Messages {
	return Messages{
		Greeting:       "Hi! Send me a YouTube link or a search keyword, and I'll download the audio for you.",
		Acknowledge:    "Downloading the audio, please wait...",
		InvalidLink:    "Invalid YouTube link.",
		NotFound:       "No results found for your query.",
		DownloadFailed: "Failed to download the audio.",
		GenericError:   "An error occurred while processing your request.",
		Unauthorized:   "Sorry, this bot is not available in this chat.",
		UnknownCommand: "Unknown command. Send a YouTube link or a search keyword.",
	}
}

// WithDefaults fills empty fields from DefaultMessages
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&m.Greeting, d.Greeting)
	fill(&m.Acknowledge, d.Acknowledge)
	fill(&m.InvalidLink, d.InvalidLink)
	fill(&m.NotFound, d.NotFound)
	fill(&m.DownloadFailed, d.DownloadFailed)
	fill(&m.GenericError, d.GenericError)
	fill(&m.Unauthorized, d.Unauthorized)
	fill(&m.UnknownCommand, d.UnknownCommand)
	return m
}
