package errors

import "fmt"

var (
	// ErrNotSignedIn rejects plain chat from connections whose token did not
	// resolve to a user. Commands remain available to anonymous users.
	ErrNotSignedIn = fmt.Errorf("you are not signed in")

	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrUserAlreadyExists  = fmt.Errorf("username is already taken")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("could not generate token")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)
