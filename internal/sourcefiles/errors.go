package sourcefiles

import "errors"

var ErrNotFound = errors.New("source file not found")
