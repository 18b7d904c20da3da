// Command parexsh is the line-oriented shell front-end to the parexis
// driver: open, serexp, parexp, wait, write, clearexp, exit.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmattsson/parexis"
	"github.com/jmattsson/parexis/internal/shellwords"
)

// errUnknownCommand marks a line whose verb isn't recognised.
var errUnknownCommand = errors.New("unknown command")

// shell holds the CLI's own compact index -> driver id mapping, alongside
// the channels themselves for last-match reporting.
type shell struct {
	driver   *parexis.Driver
	ids      []parexis.ChannelID
	channels []*parexis.Channel
}

func newShell(printer parexis.Printer) *shell {
	return &shell{driver: parexis.NewDriver(printer)}
}

func (s *shell) channelAt(idx int) (*parexis.Channel, parexis.ChannelID, error) {
	if idx < 0 || idx >= len(s.ids) {
		return nil, 0, fmt.Errorf("no such channel index %d", idx)
	}
	return s.channels[idx], s.ids[idx], nil
}

func (s *shell) openFile(argv []string) (int, error) {
	if len(argv) != 4 {
		return 0, errBadArgs
	}
	io, err := parexis.NewFileIO(argv[3])
	if err != nil {
		return 0, err
	}
	return s.register(argv[2], io), nil
}

func (s *shell) openSerial(argv []string) (int, error) {
	if len(argv) != 6 {
		return 0, errBadArgs
	}
	baud, err := strconv.Atoi(argv[4])
	if err != nil {
		return 0, errBadArgs
	}
	dps := argv[5]
	if len(dps) != 3 {
		return 0, errBadArgs
	}
	dataBits := dps[0]
	parity := parexis.Parity(dps[1])
	stopBits := dps[2]
	if (dataBits != '7' && dataBits != '8') ||
		(parity != parexis.ParityNone && parity != parexis.ParityOdd && parity != parexis.ParityEven) ||
		(stopBits != '1' && stopBits != '2') {
		return 0, errBadArgs
	}

	io, err := parexis.NewSerialIO(argv[3], baud, dataBits-'0', parity, stopBits == '2')
	if err != nil {
		return 0, err
	}
	return s.register(argv[2], io), nil
}

func (s *shell) openProcess(argv []string) (int, error) {
	if len(argv) < 4 {
		return 0, errBadArgs
	}
	io, err := parexis.NewProcessIO(argv[3:])
	if err != nil {
		return 0, err
	}
	return s.register(argv[2], io), nil
}

func (s *shell) register(name string, io parexis.IOHandle) int {
	ch := parexis.NewChannel(name, io)
	id := s.driver.AddChannel(ch)
	s.channels = append(s.channels, ch)
	s.ids = append(s.ids, id)
	return len(s.ids) - 1
}

func (s *shell) addExpect(argv []string, mode parexis.Mode) error {
	if len(argv) != 4 {
		return errBadArgs
	}
	idx, err := strconv.Atoi(argv[1])
	if err != nil {
		return errBadArgs
	}
	ch, _, err := s.channelAt(idx)
	if err != nil {
		return err
	}
	secs, err := strconv.ParseInt(argv[3], 10, 64)
	if err != nil {
		return errBadArgs
	}
	ch.AddExpect(argv[2], time.Duration(secs)*time.Second, mode, time.Now())
	return nil
}

func (s *shell) clearExpect(argv []string) error {
	if len(argv) != 2 {
		return errBadArgs
	}
	idx, err := strconv.Atoi(argv[1])
	if err != nil {
		return errBadArgs
	}
	ch, _, err := s.channelAt(idx)
	if err != nil {
		return err
	}
	ch.ClearExpects()
	return nil
}

func (s *shell) write(argv []string) error {
	if len(argv) < 3 {
		return errBadArgs
	}
	idx, err := strconv.Atoi(argv[1])
	if err != nil {
		return errBadArgs
	}
	ch, _, err := s.channelAt(idx)
	if err != nil {
		return err
	}
	text := strings.Join(argv[2:], " ")
	_, err = ch.Write([]byte(text))
	return err
}

func (s *shell) wait(argv []string, stdout *bufio.Writer) error {
	if len(argv) != 2 {
		return errBadArgs
	}
	switch argv[1] {
	case "all":
		return s.driver.WaitForAll()
	case "any":
		_, err := s.driver.WaitForAny()
		return err
	default:
		idx, err := strconv.Atoi(argv[1])
		if err != nil {
			return errBadArgs
		}
		ch, id, err := s.channelAt(idx)
		if err != nil {
			return err
		}
		if err := s.driver.WaitForOne(id); err != nil {
			return err
		}
		fmt.Fprintln(stdout, ch.LastMatch())
		return nil
	}
}

var errBadArgs = errors.New("bad arguments")

func (s *shell) dispatch(line string, stdout *bufio.Writer) error {
	argv, err := shellwords.Split(line)
	if err != nil {
		return err
	}
	if len(argv) == 0 {
		return errUnknownCommand
	}

	switch argv[0] {
	case "open":
		if len(argv) < 2 {
			return errBadArgs
		}
		var idx int
		var err error
		switch argv[1] {
		case "file":
			idx, err = s.openFile(argv)
		case "serial":
			idx, err = s.openSerial(argv)
		case "process":
			idx, err = s.openProcess(argv)
		default:
			return errBadArgs
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, idx)
		return nil

	case "serexp":
		return s.addExpect(argv, parexis.Serial)
	case "parexp":
		return s.addExpect(argv, parexis.Parallel)
	case "clearexp":
		return s.clearExpect(argv)
	case "wait":
		return s.wait(argv, stdout)
	case "write":
		return s.write(argv)
	case "exit":
		return errExit
	default:
		return errUnknownCommand
	}
}

var errExit = errors.New("exit")

func main() {
	printer := parexis.NewInterleavedPrinter(os.Stderr)
	sh := newShell(printer)

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(stdout, "# ")
	stdout.Flush()

	for scanner.Scan() {
		line := scanner.Text()

		err := sh.dispatch(line, stdout)
		switch {
		case err == nil:
			fmt.Fprintln(stdout, "ok")
		case errors.Is(err, errExit):
			stdout.Flush()
			os.Exit(0)
		case errors.Is(err, parexis.ErrTimeout):
			fmt.Fprintln(stdout, "timeout")
		case errors.Is(err, errUnknownCommand):
			fmt.Fprintln(stdout, "unknown")
		default:
			fmt.Fprintln(stdout, "error")
		}

		fmt.Fprint(stdout, "# ")
		stdout.Flush()
	}
}
