// compileinfoprint is imported by the agdist binaries for the side effect of
// printing the compileinfo to os.Stderr before any analysis output.
package compileinfoprint

import "github.com/carbocation/agdist/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
