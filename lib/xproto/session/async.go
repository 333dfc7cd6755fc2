/*
Copyright 2024 Cadre Data, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package session

import (
	"context"

	"github.com/gravitational/trace"
)

// Operation is one cooperatively-advanced unit of protocol work: a flush
// of queued frames, a single-message exchange, one stage of a reply. An
// operation makes progress only through Advance and stays completed once
// done; the only suspension points inside a step are reads and writes on
// the underlying stream.
//
// Operations never retry anything: a failed step completes the operation
// with its error and retry policy stays with the caller.
type Operation struct {
	step     func() (done bool, err error)
	done     bool
	err      error
	canceled bool
}

func newOperation(step func() (bool, error)) *Operation {
	return &Operation{step: step}
}

// failedOperation returns an operation already completed with err, for
// precondition failures detected before any work starts.
func failedOperation(err error) *Operation {
	return &Operation{done: true, err: err}
}

// Completed reports whether the operation has finished, successfully or
// not.
func (o *Operation) Completed() bool {
	return o.done
}

// Err returns the terminal error of a completed operation, nil while the
// operation is still running or when it succeeded.
func (o *Operation) Err() error {
	return o.err
}

// Advance performs one step of the operation and reports whether it is
// now complete. Advancing a completed operation is a no-op returning the
// terminal result.
func (o *Operation) Advance() (bool, error) {
	if o.done {
		return true, o.err
	}
	if o.canceled {
		o.done = true
		o.err = trace.Wrap(context.Canceled, "operation canceled")
		return true, o.err
	}
	done, err := o.step()
	if err != nil {
		o.done, o.err = true, err
	} else if done {
		o.done = true
	}
	return o.done, o.err
}

// Wait advances the operation until it completes, checking ctx between
// steps. Blocking happens only inside the underlying stream calls; attach
// a deadline to those via the session to bound an individual step.
func (o *Operation) Wait(ctx context.Context) error {
	for !o.done {
		if err := ctx.Err(); err != nil {
			o.Cancel()
			return trace.Wrap(err)
		}
		if _, err := o.Advance(); err != nil {
			return trace.Wrap(err)
		}
	}
	return trace.Wrap(o.err)
}

// Cancel requests best-effort cancellation. Cancelling a completed
// operation is a no-op; an in-progress operation stops before its next
// step, with whatever protocol state that leaves behind.
func (o *Operation) Cancel() {
	if !o.done {
		o.canceled = true
	}
}
