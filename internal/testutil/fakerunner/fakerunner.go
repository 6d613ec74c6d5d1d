// Package fakerunner is a scripted tools.CommandRunner for backend tests.
package fakerunner

import (
	"fmt"
	"strings"
	"sync"
)

// Reply is the canned outcome of one command line.
type Reply struct {
	Stdout   string
	Stderr   string
	ExitCode int32
	Err      error
}

// Runner records every command and answers from its stubs. Unstubbed
// commands succeed with empty output.
type Runner struct {
	mu       sync.Mutex
	stubs    map[string]Reply
	commands []string
}

func New() *Runner {
	return &Runner{stubs: make(map[string]Reply)}
}

// Stub sets the reply for the space-joined command line.
func (r *Runner) Stub(cmdline string, reply Reply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reply.ExitCode != 0 && reply.Err == nil {
		reply.Err = fmt.Errorf("exit status %d", reply.ExitCode)
	}
	r.stubs[cmdline] = reply
}

func (r *Runner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmdline)
	reply := r.stubs[cmdline]
	return []byte(reply.Stdout), []byte(reply.Stderr), reply.ExitCode, reply.Err
}

// Commands returns the command lines run so far.
func (r *Runner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}
