package advisory

import "errors"

var ErrIncompleteTable = errors.New("advisory table incomplete")
