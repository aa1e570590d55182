package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/docgateway/internal/api"
	"stealthcompany.com/docgateway/internal/config"
	"stealthcompany.com/docgateway/internal/docstore"
	"stealthcompany.com/docgateway/internal/docstore/memstore"
)

// sharedFactory returns a factory whose executors all use one in-memory store
func sharedFactory() ExecutorFactory {
	props := config.StaticProperties{
		config.KeyNodes:    "local",
		config.KeyUsername: "dev",
		config.KeyPassword: "dev",
	}
	gw := docstore.NewGateway(docstore.NewRegistry(memstore.NewConnector(nil)), props)
	return func(string) (api.Executor, func() error, error) {
		return gw, func() error { return nil }, nil
	}
}

func execute(root *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "docctl", root.Use)

	for _, name := range []string{"get", "remove", "create", "upsert", "exec"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestDocumentCommands(t *testing.T) {
	factory := sharedFactory()

	out, err := execute(newRootCmd(factory), "create", "u1", "-b", "users", "-p", `{"name":"Ada"}`)
	require.NoError(t, err)
	var doc docstore.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "u1", doc.ID)

	_, err = execute(newRootCmd(factory), "create", "u1", "-b", "users", "-p", `{"name":"Ada"}`)
	assert.ErrorIs(t, err, docstore.ErrDocumentExists)

	_, err = execute(newRootCmd(factory), "upsert", "u1", "-b", "users", "-p", `{"name":"Grace"}`)
	require.NoError(t, err)

	out, err = execute(newRootCmd(factory), "get", "u1", "--bucket", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "Grace")

	_, err = execute(newRootCmd(factory), "remove", "u1", "-b", "users")
	require.NoError(t, err)

	_, err = execute(newRootCmd(factory), "get", "u1", "-b", "users")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecCommand(t *testing.T) {
	factory := sharedFactory()

	_, err := execute(newRootCmd(factory), "exec", "upsert", "k", "-b", "b", "-p", `{"v":1}`)
	require.NoError(t, err)

	out, err := execute(newRootCmd(factory), "exec", "get", "k", "-b", "b")
	require.NoError(t, err)
	assert.Contains(t, out, `"v": 1`)

	_, err = execute(newRootCmd(factory), "exec", "merge", "k", "-b", "b")
	assert.ErrorIs(t, err, docstore.ErrUnknownOperation)
}

func TestCommandValidation(t *testing.T) {
	factory := sharedFactory()

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing bucket", args: []string{"get", "u1"}},
		{name: "missing id", args: []string{"get", "-b", "users"}},
		{name: "missing payload", args: []string{"create", "u1", "-b", "users"}},
		{name: "invalid payload", args: []string{"upsert", "u1", "-b", "users", "-p", "{"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(newRootCmd(factory), tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestExecRejectsUnknownOperationBeforeConnecting(t *testing.T) {
	var built int
	factory := func(string) (api.Executor, func() error, error) {
		built++
		return nil, nil, errors.New("store should not be opened")
	}

	_, err := execute(newRootCmd(factory), "exec", "junk", "k", "-b", "b")
	assert.ErrorIs(t, err, docstore.ErrUnknownOperation)
	assert.Zero(t, built)
}
