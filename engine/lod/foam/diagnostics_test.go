//go:build !oxyrelease

package foam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type keywords map[string]bool

func (k keywords) IsKeywordEnabled(keyword string) bool {
	return k[keyword]
}

func TestFoam_WarnsOnceWhenMaterialHidesFoam(t *testing.T) {
	c := newTestCompute(t)
	core, logs := observer.New(zapcore.WarnLevel)

	m, err := New(c, testCascade, WithLogger(zap.New(core)), WithMaterialKeywords(keywords{}))
	require.NoError(t, err)
	m.SetMaterialKeywords(keywords{"_OTHER": true})

	warnings := logs.FilterMessage("Foam is not enabled on the current ocean material and will not be visible.")
	assert.Equal(t, 1, warnings.Len())
	assert.Equal(t, Name, warnings.All()[0].ContextMap()["module"])
}

func TestFoam_NoWarningWhenFoamEnabled(t *testing.T) {
	c := newTestCompute(t)
	core, logs := observer.New(zapcore.WarnLevel)

	_, err := New(c, testCascade, WithLogger(zap.New(core)), WithMaterialKeywords(keywords{FoamKeyword: true}))
	require.NoError(t, err)
	_, err = New(c, testCascade, WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}
