package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type castRequest struct {
	MovieID  string `json:"movieId" validate:"notblank"`
	DeviceIP string `json:"deviceIp" validate:"required,ip|hostname_rfc1123"`
}

type pageRequest struct {
	Query string `query:"q" validate:"notblank"`
	Page  int    `query:"page" validate:"min=1"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(&castRequest{MovieID: "42", DeviceIP: "192.168.1.100"}))
	assert.NoError(t, Struct(&castRequest{MovieID: "42", DeviceIP: "living-room.local"}))
	assert.NoError(t, Struct(&pageRequest{Query: "alien", Page: 1}))
}

func TestStruct_Invalid(t *testing.T) {
	err := Struct(&castRequest{MovieID: "  ", DeviceIP: "not an address!"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "movieId", verr.Fields[0].Field)
	assert.Equal(t, "movieId must not be blank", verr.Fields[0].Message)
	assert.Equal(t, "deviceIp", verr.Fields[1].Field)
	assert.Equal(t, "deviceIp must be a valid IP address or hostname", verr.Fields[1].Message)
}

func TestStruct_QueryTagNames(t *testing.T) {
	err := Struct(&pageRequest{Query: "x", Page: 0})
	require.Error(t, err)
	assert.Equal(t, "page must be at least 1", err.Error())
}

func TestEchoValidator(t *testing.T) {
	var v EchoValidator
	assert.Error(t, v.Validate(&pageRequest{}))
	assert.NoError(t, v.Validate(&pageRequest{Query: "q", Page: 2}))
}
