// Command tinygmc-host bridges a host serial port to a Controller
// instance, reading G-code lines and immediate control bytes from the
// port and writing status/queue/exception reports back, the way the
// teacher's host/cmd/gopper-host bridges a Klipper MCU connection.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tarm/serial"

	"tinygmc/config"
	"tinygmc/controller"
	"tinygmc/stepgen"
)

var (
	device     = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud       = flag.Int("baud", 115200, "Baud rate")
	configPath = flag.String("config", "", "Path to a JSON machine configuration; defaults built in if omitted")
)

// inputEvent is one line or control byte read off the serial port,
// handed from readerLoop to the main loop's input channel.
type inputEvent struct {
	line []byte
	ctrl byte
	isCtrl bool
}

func main() {
	flag.Parse()

	fmt.Println("tinygmc-host: motion core serial bridge")

	cfg := config.Default6AxisMill()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading config: %v\n", err)
			os.Exit(1)
		}
		loaded, err := config.Load(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: parsing config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ctrl := controller.New(cfg, stepgen.NewSimBackend())

	port, err := serial.OpenPort(&serial.Config{Name: *device, Baud: *baud})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening %s: %v\n", *device, err)
		os.Exit(1)
	}
	defer port.Close()

	fmt.Printf("connected to %s at %d baud\n", *device, *baud)

	events := make(chan inputEvent, 256)
	go readerLoop(port, events)

	// Main loop: drain whatever input has arrived since the last pass,
	// then service the controller (runs the motion pipeline and emits
	// any due status/queue reports) every iteration, not only when a
	// line arrives, since motion must keep stepping between commands.
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "error: recovered from panic: %v\n", r)
				}
			}()

		drain:
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						break drain
					}
					if ev.isCtrl {
						ctrl.HandleByte(ev.ctrl)
						continue
					}
					if resp := ctrl.HandleLine(string(ev.line)); resp != nil {
						port.Write(resp)
					}
				default:
					break drain
				}
			}

			if resp := ctrl.Service(); resp != nil {
				port.Write(resp)
			}
		}()

		time.Sleep(time.Millisecond)
	}
}

// readerLoop continuously scans the serial port and forwards each line
// or recognized control byte to events, mirroring the teacher's
// usbReaderLoop split between a blocking reader and a non-blocking
// main service loop.
func readerLoop(port *serial.Port, events chan<- inputEvent) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 1 && isControlByte(line[0]) {
			events <- inputEvent{ctrl: line[0], isCtrl: true}
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		events <- inputEvent{line: cp}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: reading from port: %v\n", err)
	}
	close(events)
}

func isControlByte(b byte) bool {
	switch b {
	case controller.ByteFeedhold, controller.ByteCycleStart, controller.ByteQueueFlush, controller.ByteStatusNow, controller.ByteXOFF, controller.ByteXON:
		return true
	}
	return false
}
