package worker

import "os"

// osPipe and redirectStdin let a test feed Run's os.Stdin read without a
// real subprocess boundary.
func osPipe() (*os.File, *os.File, error) {
	return os.Pipe()
}

func redirectStdin(r *os.File) (restore func()) {
	orig := os.Stdin
	os.Stdin = r
	return func() { os.Stdin = orig }
}
