/*
Package pipeline is the conversion core: it turns one selected video into
a GIF using the shared engine handle.

A session moves Idle, Loading, Running, then Succeeded or Failed, and
returns to Idle once a caller has observed the result through Snapshot.
Only one conversion is in flight at a time; a second request gets
ErrBusy.

The engine has no structured result channel. While Running, the pipeline
waits for the first of these terminal signals:

  - the completion marker on standard output (success),
  - the memory exhaustion marker on standard error (out of memory),
  - an unhandled engine failure reported through the handle,
  - the run call returning without a marker,
  - context cancellation.

The first signal wins and later markers for the same session are ignored.
Every exit path deletes the session's workspace entries; every failure
path disposes the engine so the next conversion loads a fresh one.
Engine errors never escape as Go errors; they become the session's
error message.

Basic usage:

	p := pipeline.New(engine.NewHandle(factory), dispatcher)
	defer p.Close()

	if err := p.Select(pipeline.NewFile("clip.mov", data)); err != nil {
		return err
	}
	s, err := p.Convert(ctx)
	if err != nil {
		return err // ErrNoFile, ErrBusy or ErrClosed
	}
	if s.Status == pipeline.StatusFailed {
		fmt.Println(s.Error)
	}
*/
package pipeline
