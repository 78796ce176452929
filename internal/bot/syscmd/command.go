package syscmd

import (
	"regexp"
	"strings"
)

// ResponsePrefix marks command results fed back into the model. The system
// prompt instructs the model to treat messages with this prefix as system
// replies to its own commands.
const ResponsePrefix = "bot: "

// Request is a system command extracted from model output.
type Request struct {
	Command    string
	Parameters []string
}

// Response is the resolved result of a system command.
type Response struct {
	Result string
}

// commandPattern matches sentinel tokens of the form @command@ or
// @command|param1|param2@ embedded in model output.
var commandPattern = regexp.MustCompile(`@([a-z][a-z0-9_]*)((?:\|[^@|]*)*)@`)

// Parse extracts the first system command token from model output. The
// second return value is false when the text carries no command.
func Parse(text string) (Request, bool) {
	match := commandPattern.FindStringSubmatch(text)
	if match == nil {
		return Request{}, false
	}

	var params []string
	if match[2] != "" {
		for _, p := range strings.Split(strings.TrimPrefix(match[2], "|"), "|") {
			params = append(params, strings.TrimSpace(p))
		}
	}

	return Request{Command: match[1], Parameters: params}, true
}
