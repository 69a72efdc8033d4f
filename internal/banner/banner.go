package banner

import "github.com/fatih/color"

// Version of the pathguard binary
const Version = "1.0.0"

func GetBanner() string {
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	banner := `
` + cyan(`
 ___  ___  _____  _ _   ___  _ _  ___  ___  ___
| . \| . ||_   _|| | | / __>| | || . || . \| . \
|  _/|   |  | |  |   |( (_-.| ' ||   ||   /| | |
|_|  |_|_|  |_|  |_|_| \___/\___/|_|_||_\_\|___/
`) + `
        ` + red(`PathGuard - URL Path Injection Harness v`+Version) + `
                   ` + yellow(`by @Serdar715`) + `

` + cyan(`━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━`) + `
  ` + yellow(`Checks:`) + `
    • Malformed request-target rejection
    • Path-borne script injection (real browser)
    • Redirect percent-encoding preservation
    • Cross-origin embed invocation guard
` + cyan(`━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━`) + `
`
	return banner
}
