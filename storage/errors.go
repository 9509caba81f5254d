package storage

import "errors"

var ErrRecordNotFound = errors.New("record not found in storage")
var ErrRecordExists = errors.New("record with address already exists")
var ErrConflict = errors.New("record changed by a concurrent unit of work")
var ErrBatchTooLarge = errors.New("unit of work exceeds the store's batch limit")
