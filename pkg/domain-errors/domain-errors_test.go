package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: these are the error primitives every component boundary
// relies on. Unit tests ensure invariants like "wrapped domain errors preserve
// original code" and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "resource not found"}
		s.Equal("resource not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeTokenExpired}
		s.Equal("token_expired", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeInvalidToken, Message: "bad signature"}
		err2 := &Error{Code: CodeInvalidToken, Message: "malformed token"}
		s.True(err1.Is(err2))
	})

	s.Run("expired and invalid are distinct", func() {
		expired := New(CodeTokenExpired, "token expired")
		s.False(HasCode(expired, CodeInvalidToken))
		s.True(HasCode(expired, CodeTokenExpired))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeNotFound, Message: "original"}
		wrapped := &Error{Code: CodeInternal, Message: "wrapped", Err: inner}
		target := &Error{Code: CodeNotFound}
		s.True(errors.Is(wrapped, target))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeNotFound, "item not found")
		wrapped := Wrap(original, CodeInternal, "service layer error")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeNotFound, domainErr.Code)
		s.Equal("service layer error", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("connection refused")
		wrapped := Wrap(original, CodeTransient, "vault lookup failed")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeTransient, domainErr.Code)
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeValidation, CodeOf(New(CodeValidation, "ttl out of range")))
	s.Equal(CodeInternal, CodeOf(errors.New("plain error")))
}
