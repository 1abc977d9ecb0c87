package repository

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsNotFound reports whether err is a Firestore NotFound.
func IsNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}
