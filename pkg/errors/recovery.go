// Panic recovery for worker tasks.
//
// Grid search runs every (combination, fold) pair on its own goroutine. A panic
// inside one fit must come back as an error on that task instead of tearing
// down the whole process, so tasks are wrapped with SafeExecute.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// PanicError は回復したpanicから作られるエラーです。
type PanicError struct {
	Operation  string
	PanicValue interface{}
	// StackTrace はpanic発生時点のゴルーチンのスタック
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("logitcv: panic in %s: %v", e.Operation, e.PanicValue)
}

// String はスタックトレースを含む詳細を返します。
func (e *PanicError) String() string {
	return e.Error() + "\n" + e.StackTrace
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Interface("panic_value", e.PanicValue).
		Str("type", "PanicError")
}

// NewPanicError は現在のスタックを記録したPanicErrorを作成します。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. It must be deferred
// directly by the function that owns the named error result:
//
//	func (t *task) run() (err error) {
//	    defer Recover(&err, "task.run")
//	    ...
//	}
//
// When *err is already set, the panic is attached as a secondary error so the
// original cause stays the one reported by Is/As.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)
		if *err != nil {
			*err = errors.WithSecondaryError(*err, panicErr)
			return
		}
		*err = errors.WithStack(panicErr)
	}
}

// SafeExecute は fn を実行し、panicをPanicErrorとして返します。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
