package version

import (
	"fmt"
	"io"
	"runtime"
)

// Version is set at build time via -ldflags.
var Version string = "dev"

func Fprint(w io.Writer) {
	fmt.Fprintf(w, "groundwork version %s\n", Version)
	fmt.Fprintf(w, "%s/%s\n", runtime.GOOS, runtime.GOARCH)
}
