package domain

import "errors"

var (
	ErrUnknownRegion     = errors.New("unknown region")
	ErrUnknownReference  = errors.New("unknown reference system")
	ErrUnknownScale      = errors.New("unknown color scale")
	ErrUnknownConversion = errors.New("unknown unit conversion")
	ErrInvalidSounding   = errors.New("invalid sounding")
	ErrInvalidField      = errors.New("invalid field")
	ErrInvalidRequest    = errors.New("invalid plot request")
)
