package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSource = "let x = 1 + 2;\nstdout x;\n"

func TestBuildWritesBytecodeObject(t *testing.T) {
	tmpDir := t.TempDir()

	srcFile := filepath.Join(tmpDir, "test.vyn")
	require.NoError(t, os.WriteFile(srcFile, []byte(validSource), 0644))

	outFile := filepath.Join(tmpDir, "test.hydc")
	cmd := &cobra.Command{}
	cmd.Flags().StringP("output", "o", outFile, "")
	require.NoError(t, runBuild(cmd, []string{srcFile}))
	assert.FileExists(t, outFile)

	info, err := os.Stat(outFile)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestBuildDefaultOutputExtension(t *testing.T) {
	tmpDir := t.TempDir()
	srcFile := filepath.Join(tmpDir, "app.vyn")
	require.NoError(t, os.WriteFile(srcFile, []byte(validSource), 0644))

	cmd := &cobra.Command{}
	cmd.Flags().StringP("output", "o", "", "")
	require.NoError(t, runBuild(cmd, []string{srcFile}))
	assert.FileExists(t, filepath.Join(tmpDir, "app.hydc"))
}

func TestBuildThenDisasmRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	srcFile := filepath.Join(tmpDir, "test.vyn")
	require.NoError(t, os.WriteFile(srcFile, []byte(validSource), 0644))

	objFile := filepath.Join(tmpDir, "test.hydc")
	buildCmd := &cobra.Command{}
	buildCmd.Flags().StringP("output", "o", objFile, "")
	require.NoError(t, runBuild(buildCmd, []string{srcFile}))

	disasmCmd := &cobra.Command{}
	disasmCmd.Flags().Bool("bytecode", true, "")
	require.NoError(t, runDisasm(disasmCmd, []string{objFile}))
}

func TestCheckReportsCompileFailure(t *testing.T) {
	tmpDir := t.TempDir()
	srcFile := filepath.Join(tmpDir, "bad.vyn")
	require.NoError(t, os.WriteFile(srcFile, []byte("let = 1;\n"), 0644))

	cmd := &cobra.Command{}
	err := runCheck(cmd, []string{srcFile})
	assert.Error(t, err)
}

func TestCheckNonExistentFile(t *testing.T) {
	cmd := &cobra.Command{}
	err := runCheck(cmd, []string{"/tmp/does-not-exist.vyn"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestChangeExtension(t *testing.T) {
	assert.Equal(t, "foo.hydc", changeExtension("foo.vyn", ".hydc"))
	assert.Equal(t, "dir/foo.hydc", changeExtension("dir/foo.vyn", ".hydc"))
}

func TestFileCompilerAndServedProgramReload(t *testing.T) {
	tmpDir := t.TempDir()
	srcFile := filepath.Join(tmpDir, "served.vyn")
	require.NoError(t, os.WriteFile(srcFile, []byte(validSource), 0644))

	compiler := fileCompiler{}
	data, err := compiler.CompileFile(srcFile)
	require.NoError(t, err)

	program := &servedProgram{}
	reloader := servedProgramReloader{program: program}
	require.NoError(t, reloader.Reload(data))

	bc, ok := program.get()
	require.True(t, ok)
	assert.NotEmpty(t, bc.Instructions)
}

func TestFileCompilerReportsCompileFailure(t *testing.T) {
	tmpDir := t.TempDir()
	srcFile := filepath.Join(tmpDir, "bad.vyn")
	require.NoError(t, os.WriteFile(srcFile, []byte("let = 1;\n"), 0644))

	_, err := fileCompiler{}.CompileFile(srcFile)
	assert.Error(t, err)
}
