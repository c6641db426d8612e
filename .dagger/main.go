// Parley CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/parley/internal/dagger"
)

// Parley is the main module for the parley CI/CD pipeline
type Parley struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Parley CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Parley {
	return &Parley{
		Source: source,
	}
}

// goContainer returns a Go container with the module caches and the project
// source mounted.
//
// It is the shared foundation for tests and linting.
func (p *Parley) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", p.Source)
}

// Test runs the parley unit tests via "go test"
func (p *Parley) Test(ctx context.Context) (string, error) {
	return p.goContainer().
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}
