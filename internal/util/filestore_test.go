package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileStore_round_trip(t *testing.T) {
	//Arrange
	sut := NewFileStore(t.TempDir())
	assert.NoError(t, sut.Init())

	//Act
	err := sut.Set("agent-session", []byte("payload"))

	//Assert
	assert.NoError(t, err)
	data, err := sut.Get("agent-session")
	assert.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestFileStore_Get_missing_key(t *testing.T) {
	//Arrange
	sut := NewFileStore(t.TempDir())
	assert.NoError(t, sut.Init())

	//Act
	_, err := sut.Get("nope")

	//Assert
	assert.Equal(t, ErrKVNotFound, err)
}

func TestFileStore_Del_is_idempotent(t *testing.T) {
	//Arrange
	sut := NewFileStore(t.TempDir())
	assert.NoError(t, sut.Init())
	assert.NoError(t, sut.Set("k", []byte("v")))

	//Act/Assert
	assert.NoError(t, sut.Del("k"))
	assert.NoError(t, sut.Del("k"))
	_, err := sut.Get("k")
	assert.Equal(t, ErrKVNotFound, err)
}

func TestFileStore_Init_creates_nested_dir(t *testing.T) {
	//Arrange
	dir := filepath.Join(t.TempDir(), "a", "b")
	sut := NewFileStore(dir)

	//Act
	err := sut.Init()

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, sut.Set("k", []byte("v")))
}

func TestFileStore_key_cannot_escape_dir(t *testing.T) {
	//Arrange
	dir := t.TempDir()
	sut := NewFileStore(dir)
	assert.NoError(t, sut.Init())

	//Act
	err := sut.Set("../escape", []byte("v"))

	//Assert
	assert.NoError(t, err)
	data, err := sut.Get("../escape")
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}
