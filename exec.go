package facemesh

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/esimov/facemesh/utils"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// validExtensions holds the supported image file extensions.
var validExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"}

// Ops holds the source and destination of an execution.
type Ops struct {
	Src, Dst, PipeName string
	// JSON is the destination of the JSON report. An empty value disables the report,
	// the pipe name writes it to stdout.
	JSON    string
	Workers int
}

// result holds the relevant information about the processed image.
type result struct {
	path   string
	report *Report
	err    error
}

// Execute runs the landmark location over the source defined by op, which can be
// a local image, an URL, a pipe name or a directory. Directories are walked recursively
// and their images are processed concurrently, each worker with its own Locator.
func (p *Processor) Execute(op *Ops) error {
	var (
		fs  os.FileInfo
		src = op.Src
		err error
	)
	if p.Spinner == nil {
		defaultMsg := fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ FACEMESH", utils.StatusMessage),
			utils.DecorateText("⇢ locating the facial landmarks...", utils.DefaultMessage),
		)
		p.Spinner = utils.NewSpinner(defaultMsg, time.Millisecond*80)
	}
	if op.JSON != "" && op.JSON == op.PipeName && op.Dst == op.PipeName {
		return errors.New("the image and the JSON report cannot be both written to stdout")
	}

	// Check if source path is a local image or URL.
	if utils.IsValidUrl(op.Src) {
		f, err := utils.DownloadImage(op.Src)
		if err != nil {
			return errors.Wrap(err, "failed to load the source image")
		}
		defer os.Remove(f.Name())

		if err := f.Close(); err != nil {
			return err
		}
		src = f.Name()
	}

	// Check if the source is a pipe name or a regular file.
	if src == op.PipeName {
		fs, err = os.Stdin.Stat()
	} else {
		fs, err = os.Stat(src)
	}
	if err != nil {
		return errors.Wrap(err, "failed to load the source image")
	}

	// Capture CTRL-C signal and restore the cursor visibility.
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	defer close(done)

	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			p.Spinner.RestoreCursor()
			os.Exit(1)
		case <-done:
		}
	}()

	var (
		reports []*Report
		now     = time.Now()
	)
	p.Spinner.Start()

	switch mode := fs.Mode(); {
	case mode.IsDir():
		if op.Dst == op.PipeName {
			p.Spinner.Stop()
			return errors.New("a directory cannot be written to a pipe")
		}
		if err := os.MkdirAll(op.Dst, 0755); err != nil {
			p.Spinner.Stop()
			return errors.Wrap(err, "unable to create the destination directory")
		}

		// Limit the concurrently running workers to maxWorkers.
		if op.Workers <= 0 || op.Workers > maxWorkers {
			op.Workers = runtime.NumCPU()
		}

		var (
			wg     sync.WaitGroup
			failed int
		)
		// Process recursively the image files from the specified directory concurrently.
		ch := make(chan result)
		paths, errc := walkDir(done, src, validExtensions)

		wg.Add(op.Workers)
		for i := 0; i < op.Workers; i++ {
			go func() {
				defer wg.Done()
				op.consumer(p, op.Dst, ch, done, paths)
			}()
		}

		// Close the channel after the values are consumed.
		go func() {
			defer close(ch)
			wg.Wait()
		}()

		// Consume the channel values.
		for res := range ch {
			if res.err != nil {
				failed++
			} else {
				reports = append(reports, res.report)
			}
			op.printOpStatus(res.path, res.err)
		}
		p.Spinner.Stop()

		if err = <-errc; err != nil {
			return errors.Wrap(err, "could not walk the source directory")
		}
		if failed > 0 {
			err = errors.Errorf("%d of %d images could not be processed", failed, failed+len(reports))
		}

	case mode.IsRegular() || mode&os.ModeNamedPipe != 0: // check for regular files or pipe names
		ext := strings.ToLower(filepath.Ext(op.Dst))
		if !utils.Contains(validExtensions, ext) && op.Dst != op.PipeName {
			p.Spinner.Stop()
			return errors.Errorf("%v file type not supported", ext)
		}

		var (
			loc *Locator
			rep *Report
		)
		if loc, err = p.NewLocator(); err == nil {
			rep, err = op.process(p, loc, src, op.Dst)
			loc.Close()
		}
		p.Spinner.Stop()

		if rep != nil {
			rep.Source = op.Src
			reports = append(reports, rep)
		}
		op.printOpStatus(op.Dst, err)

	default:
		p.Spinner.Stop()
		return errors.Errorf("unsupported source: %s", op.Src)
	}

	if op.JSON != "" {
		if jerr := op.writeReports(reports); jerr != nil && err == nil {
			err = jerr
		}
	}
	if err == nil {
		fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
	}
	return err
}

// consumer reads the path names from the paths channel and locates the landmarks
// of the source image, then sends the results on the res channel.
func (op *Ops) consumer(
	p *Processor,
	dest string,
	res chan<- result,
	done <-chan struct{},
	paths <-chan string,
) {
	loc, lerr := p.NewLocator()
	if lerr == nil {
		defer loc.Close()
	}

	for src := range paths {
		var (
			rep *Report
			err = lerr
		)
		if err == nil {
			rep, err = op.process(p, loc, src, filepath.Join(dest, filepath.Base(src)))
		}
		if rep != nil {
			rep.Source = src
		}

		select {
		case <-done:
			return
		case res <- result{path: src, report: rep, err: err}:
		}
	}
}

// process opens the source and destination and runs the processor over them.
// The destination file is removed in case of an error.
func (op *Ops) process(p *Processor, loc *Locator, in, out string) (*Report, error) {
	src, dst, err := op.pathToFile(in, out)
	if err != nil {
		return nil, err
	}

	defer func() {
		if f, ok := src.(*os.File); ok && f != os.Stdin {
			if err := f.Close(); err != nil {
				p.logger().Errorf("could not close the opened file: %v", err)
			}
		}
	}()

	rep, err := p.process(loc, src, dst)

	if f, ok := dst.(*os.File); ok && f != os.Stdout {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(f.Name())
		}
	}
	return rep, err
}

// pathToFile converts the source and destination paths to readable and writable files.
func (op *Ops) pathToFile(in, out string) (io.Reader, io.Writer, error) {
	var (
		src io.Reader
		dst io.Writer
		err error
	)
	// Check if the source is a pipe name or a regular file.
	if in == op.PipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdin")
		}
		src = os.Stdin
	} else {
		src, err = os.Open(in)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to open the source file")
		}
	}

	// Check if the destination is a pipe name or a regular file.
	if out == op.PipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdout")
		}
		dst = os.Stdout
	} else {
		dst, err = os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			if f, ok := src.(*os.File); ok && f != os.Stdin {
				f.Close()
			}
			return nil, nil, errors.Wrap(err, "unable to create the destination file")
		}
	}
	return src, dst, nil
}

// writeReports writes the collected reports to the JSON destination.
func (op *Ops) writeReports(reports []*Report) error {
	if op.JSON == op.PipeName {
		return WriteJSON(os.Stdout, reports...)
	}

	f, err := os.Create(op.JSON)
	if err != nil {
		return errors.Wrap(err, "unable to create the JSON report")
	}
	defer f.Close()

	return WriteJSON(f, reports...)
}

// printOpStatus displays the relevant information about the processed image.
func (op *Ops) printOpStatus(fname string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%s",
			utils.DecorateText(fmt.Sprintf("\nError processing the image %s", filepath.Base(fname)), utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err), utils.DefaultMessage),
		)
		return
	}
	if fname != op.PipeName {
		fmt.Fprintf(os.Stderr, "\nThe image has been processed: %s %s\n",
			utils.DecorateText(filepath.Base(fname), utils.SuccessMessage),
			utils.DefaultColor,
		)
	}
}

// walkDir starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each supported image file to a new channel.
// It finishes in case the done channel is getting closed.
func walkDir(
	done <-chan struct{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, f os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !f.Mode().IsRegular() {
				return nil
			}

			if utils.Contains(srcExts, strings.ToLower(filepath.Ext(f.Name()))) {
				select {
				case <-done:
					return errors.New("directory walk cancelled")
				case pathChan <- path:
				}
			}
			return nil
		})
	}()
	return pathChan, errChan
}
