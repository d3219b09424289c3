package core

import (
	"errors"
	"net/url"
)

var (
	// ErrConflictingContent indicates both a url and inline html were supplied.
	ErrConflictingContent = errors.New("url and html are mutually exclusive")
	// ErrInvalidURL indicates the initial url cannot be loaded.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidSize indicates a non-positive or inverted size constraint.
	ErrInvalidSize = errors.New("invalid size")
)

// ValidateWindowOptions performs the checks that do not need a native toolkit.
func ValidateWindowOptions(opts WindowOptions) error {
	if opts.URL != "" && opts.HTML != "" {
		return ErrConflictingContent
	}
	if opts.URL != "" {
		if err := validateURL(opts.URL); err != nil {
			return err
		}
	}
	if err := validateSize(opts.Size); err != nil {
		return err
	}
	if opts.MinSize != nil {
		if err := validateSize(*opts.MinSize); err != nil {
			return err
		}
	}
	if opts.MaxSize != nil {
		if err := validateSize(*opts.MaxSize); err != nil {
			return err
		}
	}
	if opts.MinSize != nil && opts.MaxSize != nil {
		if opts.MinSize.Width > opts.MaxSize.Width || opts.MinSize.Height > opts.MaxSize.Height {
			return ErrInvalidSize
		}
	}
	return nil
}

// ValidateSize rejects sizes a window cannot take.
func ValidateSize(s Size) error {
	return validateSize(s)
}

func validateSize(s Size) error {
	if s.Width <= 0 || s.Height <= 0 {
		return ErrInvalidSize
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if parsed.Scheme == "" {
		return ErrInvalidURL
	}
	return nil
}
