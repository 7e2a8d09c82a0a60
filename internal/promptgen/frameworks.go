package promptgen

// FallbackFrameworkDescription is used for selectors that are not in the table.
const FallbackFrameworkDescription = "No specific framework details available."

// Framework is a named structure for agent system messages.
type Framework struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// frameworks is ordered for listing; lookups go through frameworkIndex.
var frameworks = []Framework{
	{
		Name: "CARE Framework",
		Description: `
The CARE Framework consists of:
- Context: Describe the situation or background to set the stage for the AI's response.
- Ask: Clearly state the specific request or question.
- Rules: Provide any constraints or guidelines the AI should follow.
- Examples: Offer sample responses or scenarios to illustrate the desired outcome.
`,
	},
	{
		Name: "APE Framework",
		Description: `
The APE Framework consists of:
- Action: Define the specific action the AI should perform.
- Process: Outline the steps or methodology to accomplish the action.
- Explanation: Provide reasoning or context behind the action and process.
`,
	},
	{
		Name: "CREATE Framework",
		Description: `
The CREATE Framework consists of:
- Clarify: Define the problem or task clearly.
- Reflect: Encourage the AI to consider relevant information or past experiences.
- Evaluate: Assess possible solutions or responses.
- Act: Choose and implement the best solution.
- Tell: Explain the reasoning behind the chosen action.
- Examine: Review the outcome and learn from the experience.
`,
	},
	{
		Name: "RACE Framework",
		Description: `
The RACE Framework consists of:
- Role: Specify the role the AI should assume.
- Action: Describe the task the AI needs to perform.
- Context: Provide background information to inform the AI's response.
- Expectation: Define the desired outcome or criteria for success.
`,
	},
	{
		Name: "SPEAR Framework",
		Description: `
The SPEAR Framework consists of:
- Start: Initiate the interaction with a clear objective.
- Provide: Offer necessary information or data.
- Explain: Clarify any complex points or instructions.
- Ask: Pose questions to guide the AI or gather more information.
- Rinse & Repeat: Iterate the process as needed to refine the outcome.
`,
	},
	{
		Name: "RPG Framework",
		Description: `
The RPG Framework consists of:
- Role: Define the role or persona the AI should embody.
- Purpose: Specify the main goal or objective of the interaction.
- Guidelines: Set any rules or constraints the AI should adhere to.
`,
	},
}

var frameworkIndex = func() map[string]int {
	m := make(map[string]int, len(frameworks))
	for i, f := range frameworks {
		m[f.Name] = i
	}
	return m
}()

// Frameworks returns the known frameworks in display order.
func Frameworks() []Framework {
	out := make([]Framework, len(frameworks))
	copy(out, frameworks)
	return out
}

// FrameworkNames returns the selector names in display order.
func FrameworkNames() []string {
	names := make([]string, len(frameworks))
	for i, f := range frameworks {
		names[i] = f.Name
	}
	return names
}

// LookupFramework returns the framework for an exact selector.
func LookupFramework(name string) (Framework, bool) {
	i, ok := frameworkIndex[name]
	if !ok {
		return Framework{}, false
	}
	return frameworks[i], true
}

// FrameworkDescription returns the description block for a selector, falling
// back to a generic notice for unknown selectors.
func FrameworkDescription(name string) string {
	if f, ok := LookupFramework(name); ok {
		return f.Description
	}
	return FallbackFrameworkDescription
}
