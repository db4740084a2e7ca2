package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gosherveLayerYAML = `summary: gosherve layer
description: pebble config layer for gosherve
services:
    gosherve:
        override: replace
        summary: gosherve service
        command: /gosherve
        startup: enabled
        environment:
            REDIRECT_MAP_URL: http://example.com/map
            WEBROOT: /srv/hello-kubecon
`

func TestParseLayer(t *testing.T) {
	layer, err := ParseLayer([]byte(gosherveLayerYAML))
	require.NoError(t, err)
	svc := layer.Services["gosherve"]
	assert.Equal(t, OverrideReplace, svc.Override)
	assert.Equal(t, "/srv/hello-kubecon", svc.Environment["WEBROOT"])

	out, err := layer.ToYAML()
	require.NoError(t, err)
	assert.Equal(t, gosherveLayerYAML, out)
}

func TestEmptyPlanToYAML(t *testing.T) {
	for _, plan := range []Plan{{}, {Services: map[string]Service{}}} {
		out, err := plan.ToYAML()
		require.NoError(t, err)
		assert.Equal(t, "{}\n", out)
	}
}

func TestCombineLayerReplace(t *testing.T) {
	base := Layer{Services: map[string]Service{
		"web":   {Override: OverrideReplace, Command: "/web", Environment: map[string]string{"A": "1"}},
		"other": {Override: OverrideReplace, Command: "/other"},
	}}
	overlay := Layer{Summary: "new", Services: map[string]Service{
		"web": {Override: OverrideReplace, Command: "/web2"},
	}}

	out, err := CombineLayer(base, overlay)
	require.NoError(t, err)
	assert.Equal(t, "new", out.Summary)
	assert.Equal(t, Service{Override: OverrideReplace, Command: "/web2"}, out.Services["web"])
	assert.Equal(t, "/other", out.Services["other"].Command)
	// base is not modified
	assert.Equal(t, "1", base.Services["web"].Environment["A"])
}

func TestCombineLayerMerge(t *testing.T) {
	base := Layer{Services: map[string]Service{
		"web": {Override: OverrideReplace, Command: "/web", Startup: StartupEnabled, Environment: map[string]string{"A": "1"}},
	}}
	overlay := Layer{Services: map[string]Service{
		"web": {Override: OverrideMerge, Environment: map[string]string{"B": "2"}},
	}}

	out, err := CombineLayer(base, overlay)
	require.NoError(t, err)
	web := out.Services["web"]
	assert.Equal(t, OverrideMerge, web.Override)
	assert.Equal(t, "/web", web.Command)
	assert.Equal(t, StartupEnabled, web.Startup)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, web.Environment)
	assert.Equal(t, map[string]string{"A": "1"}, base.Services["web"].Environment)
}

func TestCombineLayerInvalidOverride(t *testing.T) {
	_, err := CombineLayer(Layer{}, Layer{Services: map[string]Service{"web": {Override: "upsert"}}})
	assert.True(t, errors.Is(err, ErrInvalidOverride))
}

func TestServicesEqual(t *testing.T) {
	a := map[string]Service{"web": {Override: OverrideReplace, Command: "/web"}}
	b := map[string]Service{"web": {Override: OverrideReplace, Command: "/web", Environment: map[string]string{}}}

	assert.True(t, ServicesEqual(a, b))
	assert.True(t, ServicesEqual(nil, map[string]Service{}))
	assert.False(t, ServicesEqual(a, nil))

	b["web"] = Service{Override: OverrideReplace, Command: "/web", Environment: map[string]string{"A": "1"}}
	assert.False(t, ServicesEqual(a, b))
	assert.NotEmpty(t, ServicesDiff(a, b))
}
