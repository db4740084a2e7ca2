package hook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"hello-kubecon/internal/framework"
)

func TestCheckHook(t *testing.T) {
	assert.NoError(t, checkHook("install"))
	assert.NoError(t, checkHook("config-changed"))

	err := checkHook("pull-site")
	assert.EqualError(t, err, "'pull-site' is an action, run: hello-kubecon action pull-site")

	err = checkHook("upgrade-charm")
	assert.True(t, errors.Is(err, framework.ErrUnknownEvent))
	assert.Contains(t, err.Error(), "config-changed, install")
}
