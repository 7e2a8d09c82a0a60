package promptgen

import (
	"fmt"

	"github.com/BTreeMap/AgentForm/internal/models"
)

// SystemInstruction is sent as the system message of every generation.
const SystemInstruction = "You are an expert at creating system messages for AI agents. Output your response in markdown format."

// ErrorNotice is appended in-band when the provider fails after output was sent.
const ErrorNotice = "\n\n**Error occurred during generation.**"

const instructionTemplate = `
Create a system message for an AI agent named "%[1]s" using the %[2]s structure.

### Agent Details:
- Name: %[1]s
- Purpose: %[3]s
- Target Users: %[4]s

### Framework Information:
%[5]s

Please generate a detailed system message in markdown format that follows the %[2]s structure.
The message should be specific to the agent's purpose and target users. Include clear instructions and avoid generic language.
Format your response as clean markdown with appropriate headings, bullet points, and emphasis.
`

// BuildInstruction renders the user message for a request.
func BuildInstruction(req models.GenerationRequest) string {
	return fmt.Sprintf(instructionTemplate,
		req.AgentName,
		req.Framework,
		req.AgentPurpose,
		req.TargetUsers,
		FrameworkDescription(req.Framework),
	)
}
