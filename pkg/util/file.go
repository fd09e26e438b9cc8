package util

import (
	"github.com/spf13/afero"
)

func FileExists(fs afero.Fs, path string) bool {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return false
	}
	return exists
}
