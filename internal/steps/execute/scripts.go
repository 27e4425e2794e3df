package execute

import "embed"

//go:embed scripts
var scriptFiles embed.FS

// scriptsDir is where helper scripts land on the guests.
const scriptsDir = "/usr/local/bin"

// mustScript loads an embedded helper script body.
func mustScript(name string) []byte {
	content, err := scriptFiles.ReadFile("scripts/" + name)
	if err != nil {
		panic("missing embedded script " + name)
	}
	return content
}

// Helper scripts shipped to guests before execution. The aliases keep
// tests written for the restraint harness working unchanged.
var (
	rebootScript = Script{
		Path:             scriptsDir + "/gauntlet-reboot",
		Aliases:          []string{scriptsDir + "/rstrnt-reboot", scriptsDir + "/rhts-reboot"},
		RelatedVariables: []string{"GAUNTLET_REBOOT_COUNT", "REBOOTCOUNT", "RSTRNT_REBOOTCOUNT"},
		Content:          mustScript("gauntlet-reboot"),
	}
	reportResultScript = Script{
		Path:             scriptsDir + "/gauntlet-report-result",
		Aliases:          []string{scriptsDir + "/rstrnt-report-result", scriptsDir + "/rhts-report-result"},
		RelatedVariables: []string{"GAUNTLET_TEST_DATA"},
		Content:          mustScript("gauntlet-report-result"),
	}
	fileSubmitScript = Script{
		Path:             scriptsDir + "/gauntlet-file-submit",
		RelatedVariables: []string{"GAUNTLET_TEST_DATA"},
		Content:          mustScript("gauntlet-file-submit"),
	}

	defaultScripts = []Script{rebootScript, reportResultScript, fileSubmitScript}
)
