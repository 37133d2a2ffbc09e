package storage

import "errors"

var ErrCategoryNotFound = errors.New("category not found in storage")
var ErrSetNotFound = errors.New("category set not found in storage")
var ErrResultNotFound = errors.New("result set not found in storage")
