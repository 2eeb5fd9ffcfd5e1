// Command ttyd runs the line-discipline driver standalone against the
// operator's own terminal, exercising the console back-end the same
// way a kernel would host it against real hardware.
package main

import (
	"flag"
	"log"
	"os"

	"golang.org/x/term"

	"tty9.dev/ttyd/backend"
	"tty9.dev/ttyd/internal/tty"
)

var (
	consLines = flag.Int("cons", 1, "number of console lines")
	rs232Dev  = flag.String("rs232", "", "serial device path, e.g. /dev/ttyS0 (adds one line)")
	ptyLines  = flag.Int("pty", 0, "number of pty pairs")
	trace     = flag.Bool("trace", false, "log every select and function-key notification")
)

func main() {
	log.SetPrefix("ttyd: ")
	log.SetFlags(0)
	flag.Parse()

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		log.Fatal(err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	n := *consLines + *ptyLines
	if *rs232Dev != "" {
		n++
	}
	if n == 0 {
		log.Fatal("no lines configured: pass -cons, -rs232, or -pty")
	}

	consoles := make([]*backend.Console, 0, *consLines)
	ptys := make([]*backend.PTY, 0, *ptyLines)
	var serial *backend.Serial

	mem := tty.NewFlatMem(1 << 20)
	sig := tty.NewRegistry()

	backendFor := func(minor, index int) tty.Backend {
		switch {
		case minor < *consLines:
			cols, rows, err := term.GetSize(int(os.Stdin.Fd()))
			if err != nil {
				cols, rows = 80, 24
			}
			c := backend.NewConsole(cols, rows)
			consoles = append(consoles, c)
			return c
		case *rs232Dev != "" && minor == *consLines:
			s, err := backend.OpenSerial(*rs232Dev)
			if err != nil {
				log.Fatalf("open %s: %v", *rs232Dev, err)
			}
			serial = s
			return s
		default:
			p, err := backend.OpenPTY()
			if err != nil {
				log.Fatalf("open pty: %v", err)
			}
			log.Printf("pty %d slave: %s", index, p.Slave)
			ptys = append(ptys, p)
			return p
		}
	}

	notify := func(caller int32) {
		if *trace {
			log.Printf("notify: caller=%d", caller)
		}
	}

	driver := tty.NewDriver(n, mem, sig, backendFor, notify, nil)
	go driver.Run()

	if len(consoles) > 0 {
		go pumpStdin(driver, consoles[0], 0)
	}
	if serial != nil {
		log.Printf("serial line ready on %s", *rs232Dev)
	}
	log.Printf("%d pty pair(s) ready", len(ptys))

	select {}
}

// pumpStdin reads the operator's real terminal (already in raw mode)
// and feeds each byte to the console back-end for minor's line.
func pumpStdin(d *tty.Driver, c *backend.Console, minor int) {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		for _, b := range buf[:n] {
			if b == 0x1c { // ^\ as a local "detach" key
				return
			}
			c.Feed(d.Lines[minor], d.RaiseEvents, b)
		}
		if err != nil {
			return
		}
	}
}
