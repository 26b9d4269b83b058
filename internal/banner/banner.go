// Package banner renders the startup banner.
package banner

import "fmt"

const art = `
                  _        _
  ___ _ _ _  _ __| |_ ___ | |_  _ __  _ __
 / __| '_| || | '_ \  _/ _ \| ' \| '  \| '  \
 \__|_|  \_, | .__/\__\___/|_||_|_|_|_|_|_|_|
         |__/|_|
`

// Banner returns the banner with the version line.
func Banner(version string) string {
	return fmt.Sprintf("%s\n  cryptohmm %s - hidden Markov models for substitution ciphers\n\n", art, version)
}
