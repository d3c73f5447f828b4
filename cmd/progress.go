package main

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/tasks"
)

// progressPrinter renders task updates: a bar on a terminal, plain lines otherwise.
type progressPrinter struct {
	out   io.Writer
	tty   bool
	bar   *progressbar.ProgressBar
	phase tasks.Phase
	last  int // last plain upload step printed
}

// watch drains updates in the background; the returned channel closes once
// updates is closed and the last line has been written.
func (r *Runner) watch(updates <-chan tasks.ProgressUpdate) <-chan struct{} {
	p := &progressPrinter{out: r.output, tty: r.tty, last: -1}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			p.handle(u)
		}
		p.finish()
	}()
	return done
}

func (p *progressPrinter) handle(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.Upload:
		up, _ := u.Data.(models.UploadProgress)
		if p.tty {
			p.uploadBar(up, u.Message)
			return
		}
		if step := u.Step / 25; up.Indeterminate || up.Done || step > p.last {
			p.last = step
			p.line(u.Message)
		}
	case tasks.FetchPage:
		if p.tty && u.Total > 1 {
			p.pageBar(u)
			return
		}
		p.line(u.Message)
	default:
		p.line(u.Message)
	}
}

func (p *progressPrinter) uploadBar(up models.UploadProgress, msg string) {
	if p.bar == nil || p.phase != tasks.Upload {
		p.finish()
		total := up.TotalBytes
		if up.Indeterminate || total <= 0 {
			total = -1
		}
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(0),
			progressbar.OptionClearOnFinish(),
		)
		p.phase = tasks.Upload
	}
	_ = p.bar.Set64(up.BytesSent)
	if up.Done {
		p.finish()
		p.line(msg)
	}
}

func (p *progressPrinter) pageBar(u tasks.ProgressUpdate) {
	if p.bar == nil || p.phase != tasks.FetchPage {
		p.finish()
		p.bar = progressbar.NewOptions(u.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Fetching pages"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(0),
			progressbar.OptionClearOnFinish(),
		)
		p.phase = tasks.FetchPage
	}
	_ = p.bar.Set(u.Step)
}

func (p *progressPrinter) line(msg string) {
	if msg == "" {
		return
	}
	p.finish()
	io.WriteString(p.out, msg+"\n")
}

func (p *progressPrinter) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
