// Package controller is the top-level line-protocol dispatcher, wiring
// gcode parsing, the canonical machine, the planner ring, the segment
// runtime, and the stepgen engine together the way the teacher's
// standalone.Manager wires its own interpreter/planner/stepper trio,
// generalized to this firmware's MODEL/PLANNER/RUNTIME split and single-
// byte immediate controls. HandleLine only parses and queues; Service
// drives the queue into motion and is polled separately by the host
// bridge's main loop, the way the teacher's scheduler separates command
// intake from the timer-dispatch loop that actually moves motors.
package controller

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tinygmc/config"
	"tinygmc/core"
	"tinygmc/gcode"
	"tinygmc/gcodestate"
	"tinygmc/homing"
	"tinygmc/kinematics"
	"tinygmc/machine"
	"tinygmc/planner"
	"tinygmc/reports"
	"tinygmc/runtime"
	"tinygmc/stepgen"
	"tinygmc/trapezoid"
)

// Immediate single-byte controls recognized outside of line framing.
const (
	ByteFeedhold   = '!'
	ByteCycleStart = '~'
	ByteQueueFlush = '%'
	ByteStatusNow  = '^'
	ByteXOFF       = 0x13
	ByteXON        = 0x11
)

// Homing timing constants, in core.TimerFreq ticks: the oversampling
// cadence an Endstop uses while confirming a trigger, and the expiration
// deadline a homing move gives up and reports an error by.
const (
	homingSampleTicks   = core.TimerFreq / 1000 // 1ms between oversample checks
	homingSampleCount   = 4                     // consecutive matching samples required
	homingRestTicks     = core.TimerFreq / 200  // 5ms first-stage poll cadence
	homingTimeoutTicks  = core.TimerFreq * 2    // 2s before a homing move gives up
	homingTriggerReason = 1
	homingExpireReason  = 2
)

// Controller owns one machine's full pipeline.
type Controller struct {
	Machine *machine.Machine
	Parser  *gcode.Parser
	Ring    *planner.Ring
	Runtime *runtime.Runtime
	Engine  *stepgen.Engine
	Prep    *stepgen.Prep
	Config  *config.MachineConfig
	KV      config.KVStore

	StatusReport *reports.StatusReport
	QueueReport  *reports.QueueReport

	endstops map[int]*homing.Endstop
	sim      *simGPIO

	jsonMode bool
	xoff     bool

	g53Override bool
	pendingTool int
	pendingRx   bool

	queuedAdded   int
	queuedRemoved int
}

// New builds a Controller from a loaded configuration and a stepgen
// backend (simulator or hardware).
func New(cfg *config.MachineConfig, backend stepgen.Backend) *Controller {
	kin := kinematics.New()
	applyAxisConfig(kin, cfg)

	var sim *simGPIO
	if !core.GPIODriverRegistered() {
		sim = newSimGPIO()
		core.SetGPIODriver(sim)
	}

	var stepsPerUnit [stepgen.MotorCount]float64
	for i, name := range config.AxisOrder {
		if axis, ok := cfg.Axes[name]; ok {
			stepsPerUnit[i] = axis.StepsPerUnit
		}
	}

	c := &Controller{
		Machine: machine.New(kin),
		Parser:  gcode.NewParser(),
		Ring:    planner.New(),
		Runtime: runtime.New(),
		Engine:  stepgen.NewEngine(backend),
		Prep:    stepgen.NewPrep(stepsPerUnit),
		Config:  cfg,
		KV:      config.NewMemStore(),
		sim:     sim,

		StatusReport: reports.NewStatusReport(false),
		QueueReport:  reports.NewQueueReport(false, 50000),
		jsonMode:     true,
	}

	c.endstops = make(map[int]*homing.Endstop)
	for i, name := range config.AxisOrder {
		es, ok := cfg.Endstops[name]
		if !ok {
			continue
		}
		ep, err := homing.ConfigureEndstop(uint8(i), parsePin(es.Pin), true)
		if err == nil {
			c.endstops[i] = ep
		}
	}

	c.restoreOffsets()
	c.registerStatusFields()
	return c
}

// restoreOffsets reloads any G10-persisted G54 work offsets from KV, the
// way a real controller reloads flash-backed settings on boot; the host
// simulator's MemStore doesn't survive a process restart, but the
// accessor is exercised exactly as a flash-backed KVStore would be.
func (c *Controller) restoreOffsets() {
	for i := 0; i < gcodestate.AxisCount; i++ {
		if v, ok := config.LoadFloat(c.KV, config.AxisKey(i)); ok {
			c.Machine.GMX.CoordOffsets[gcodestate.CoordG54][i] = v
		}
	}
}

func applyAxisConfig(kin *kinematics.Kinematics, cfg *config.MachineConfig) {
	for i, name := range config.AxisOrder {
		axis, ok := cfg.Axes[name]
		if !ok {
			continue
		}
		kin.Axes[i].TravelMin = axis.TravelMin
		kin.Axes[i].TravelMax = axis.TravelMax
		if i >= gcodestate.AxisA {
			switch axis.Mode {
			case "radius":
				kin.Axes[i].Mode = kinematics.AxisRadius
				kin.Axes[i].Radius = axis.Radius
			case "inhibited":
				kin.Axes[i].Mode = kinematics.AxisInhibited
			case "disabled":
				kin.Axes[i].Mode = kinematics.AxisDisabled
			default:
				kin.Axes[i].Mode = kinematics.AxisStandard
			}
		}
	}
}

func (c *Controller) registerStatusFields() {
	c.StatusReport.Register("stat", func() (string, bool) {
		return core.Itoa(int(c.Machine.State)), false
	})
	for i := 0; i < gcodestate.AxisCount; i++ {
		axis := i
		c.StatusReport.Register("pos"+strings.ToLower(gcodestate.AxisNames[axis]), func() (string, bool) {
			return strconv.FormatFloat(c.Machine.GMX.AbsoluteMachinePosition[axis], 'f', 3, 64), false
		})
	}
}

// HandleByte processes one immediate-control byte. Returns true if the
// byte was consumed as a control (and should not be fed to line
// framing).
func (c *Controller) HandleByte(b byte) bool {
	switch b {
	case ByteFeedhold:
		c.Machine.RequestHold()
		return true
	case ByteCycleStart:
		c.Machine.RequestCycleStart()
		return true
	case ByteQueueFlush:
		c.Machine.RequestQueueFlush()
		return true
	case ByteStatusNow:
		c.StatusReport.ResetASAP()
		return true
	case ByteXOFF:
		c.xoff = true
		return true
	case ByteXON:
		c.xoff = false
		return true
	}
	return false
}

// HandleLine parses and dispatches one line of G-code text, returning
// the response line(s) to send back (a text "ok"/error line, or a JSON
// report line, depending on mode). It only parses and queues motion and
// queued ops into the planner ring; Service is what actually drains the
// ring into step pulses, on its own poll cadence.
func (c *Controller) HandleLine(line string) []byte {
	cmd, err := c.Parser.ParseLine(line)
	if err != nil {
		return reports.ExceptionReport(1, err.Error())
	}
	if cmd == nil || (cmd.Comment != "" && cmd.Type == 0) {
		return nil
	}

	if err := c.dispatch(cmd); err != nil {
		return reports.ExceptionReport(2, err.Error())
	}

	if c.jsonMode {
		return []byte(`{"r":{},"f":[0,0,0]}` + "\n")
	}
	return []byte("ok\n")
}

// Service is polled once per foreground loop iteration by the host
// bridge: it acts on any latched async request, advances the feedhold
// sub-state machine, and pumps the planner ring through the runtime and
// stepgen engine, one block per call. It returns whatever status/queue
// report lines should be sent this tick.
func (c *Controller) Service() []byte {
	flushNow := c.Machine.PollRequests(
		c.Runtime.Hold() == runtime.HoldHold,
		c.Runtime.RequestFeedhold,
		c.Runtime.QueueFlushAllowed,
		c.Runtime.CycleStart,
	)
	if flushNow {
		c.flushQueue()
	}
	if c.Runtime.Hold() == runtime.HoldSync {
		c.advanceHold()
	}
	if c.Runtime.Hold() == runtime.HoldEndHold {
		c.Runtime.EndHold()
	}

	switch c.Machine.State {
	case machine.StateRun, machine.StateCycle, machine.StateReady:
		if c.Runtime.Hold() != runtime.HoldHold {
			if !c.Runtime.Active() {
				c.loadNextBlock()
			}
			if c.Runtime.Active() {
				c.pumpSegments()
			}
		}
	}

	return c.buildReports()
}

// advanceHold collapses the SYNC -> PLAN -> DECEL -> HOLD sequence into a
// single step as soon as a feedhold has reached SYNC. This firmware does
// not replan a jerk-limited deceleration curve for the remainder of the
// in-progress block (a disclosed simplification, see DESIGN.md): since
// pumpSegments runs a loaded block to completion within one Service call,
// the hold is reached between blocks, and Service then stops loading and
// pumping blocks while Hold()==HoldHold.
func (c *Controller) advanceHold() {
	c.Runtime.BeginPlan()
	c.Runtime.BeginDecel(trapezoid.Result{})
	c.Runtime.ReachHold()
}

// loadNextBlock pulls the oldest queued buffer into the runtime (or
// services it immediately if it's a non-motion queued op), back-planning
// the remaining queue first so the new block's entry velocity reflects
// everything still ahead of it.
func (c *Controller) loadNextBlock() {
	b := c.Ring.Run()
	if b == nil {
		return
	}

	if b.Op != planner.OpNone {
		c.runQueuedOp(b)
		c.Ring.Free()
		c.queuedRemoved++
		return
	}

	planner.BackPlan(c.Ring.Queued(), trapezoid.LAccel)

	fit := trapezoid.Plan(b.Length, b.EntryVelocity, b.ExitVelocity, b.CruiseVmax, b.DeltaVmax, b.Jerk)
	block := runtime.Block{
		Unit:   b.Unit,
		Length: b.Length,
		Jerk:   b.Jerk,
		Head:   fit,
		Body:   fit,
		Tail:   fit,
		State:  b.GState,
	}
	c.Runtime.Load(block, b.From)

	if c.Machine.State == machine.StateReady {
		c.Machine.State = machine.StateRun
	}
}

// pumpSegments drains the runtime's current block to completion,
// converting each ~5ms segment into integer step counts via Prep and
// driving the DDA engine through them, freeing the ring slot once the
// block's last section is consumed.
func (c *Controller) pumpSegments() {
	for c.Runtime.Active() {
		seg, done := c.Runtime.Next()
		if done {
			c.Ring.Free()
			c.queuedRemoved++
			return
		}
		c.feedSegment(seg)
	}
}

func (c *Controller) feedSegment(seg runtime.Segment) {
	var deltaUnits [stepgen.MotorCount]float64
	n := gcodestate.AxisCount
	if n > stepgen.MotorCount {
		n = stepgen.MotorCount
	}
	for i := 0; i < n; i++ {
		deltaUnits[i] = seg.Delta[i]
	}
	c.Prep.Submit(deltaUnits, seg.Time)
	ps := c.Prep.Take()
	c.Engine.LoadSegment(ps.Steps, ps.Period)
	c.Engine.RunSegment()
}

// flushQueue discards every queued/running buffer and aborts whatever
// the runtime is mid-way through, honored only once the machine's
// feedhold sequencing has confirmed it's safe (Machine.PollRequests
// gates this on QueueFlushAllowed).
func (c *Controller) flushQueue() {
	c.Runtime.Abort()
	pending := c.Ring.Queued()
	for range pending {
		c.Ring.Free()
		c.queuedRemoved++
	}
	c.StatusReport.ResetASAP()
	c.pendingRx = true
}

// runQueuedOp executes a non-motion queued buffer's side effect at the
// point the planner reaches it, keeping it correctly interleaved with
// the motion around it instead of applying immediately when parsed.
func (c *Controller) runQueuedOp(b *planner.Buffer) {
	switch b.Op {
	case planner.OpDwell:
		c.simulateDwell(b.Values[0])
	case planner.OpSpindleSpeed:
		c.Machine.GM.SpindleSpeed = b.Values[0]
	case planner.OpSpindleControl:
		c.Machine.GM.SpindleMode = gcodestate.SpindleMode(b.Values[0])
	case planner.OpCoolantControl:
		c.Machine.GM.Coolant = gcodestate.CoolantFlags(b.Values[0])
	case planner.OpToolChange:
		c.Machine.GM.Tool = int(b.Values[0])
	}
}

// simulateDwell advances the simulated clock by seconds and drains any
// timers that fall due in that span, modeling a G4 pause without
// actually blocking the host process.
func (c *Controller) simulateDwell(seconds float64) {
	ticks := uint32(seconds * core.TimerFreq)
	core.SetTime(core.GetTime() + ticks)
	core.ProcessTimers()
}

func (c *Controller) buildReports() []byte {
	out := c.StatusReport.Build()
	if isEmptyStatus(out) {
		out = nil
	}
	now := core.GetTime()
	if c.QueueReport.ShouldSend(now) {
		out = append(out, c.QueueReport.Build(now, c.Ring.Available(), c.queuedAdded, c.queuedRemoved)...)
		c.queuedAdded, c.queuedRemoved = 0, 0
	}
	if c.pendingRx {
		out = append(out, reports.RxReport(c.Ring.Available())...)
		c.pendingRx = false
	}
	return out
}

func isEmptyStatus(b []byte) bool {
	return string(b) == `{"sr":{}}`+"\n"
}

func (c *Controller) dispatch(cmd *gcode.Command) error {
	switch cmd.Type {
	case 'G':
		return c.dispatchG(cmd)
	case 'M':
		return c.dispatchM(cmd)
	case 'T':
		c.pendingTool = cmd.Number
	}
	return nil
}

func (c *Controller) dispatchG(cmd *gcode.Command) error {
	switch cmd.Number {
	case 0, 1:
		return c.queueLinearMove(cmd)
	case 2:
		return c.queueArc(cmd, true)
	case 3:
		return c.queueArc(cmd, false)
	case 4:
		return c.queueDwell(cmd)
	case 10:
		return c.setCoordSystemOffset(cmd)
	case 17:
		c.Machine.GM.Plane = gcodestate.PlaneXY
	case 18:
		c.Machine.GM.Plane = gcodestate.PlaneXZ
	case 19:
		c.Machine.GM.Plane = gcodestate.PlaneYZ
	case 20:
		c.Machine.GM.Units = gcodestate.UnitsInches
	case 21:
		c.Machine.GM.Units = gcodestate.UnitsMM
	case 28:
		if cmd.Subcode == 1 {
			c.Machine.GMX.G28Position = c.Machine.GMX.AbsoluteMachinePosition
			return nil
		}
		return c.home(cmd)
	case 30:
		if cmd.Subcode == 1 {
			c.Machine.GMX.G30Position = c.Machine.GMX.AbsoluteMachinePosition
			return nil
		}
		return c.goToStoredPosition(c.Machine.GMX.G30Position)
	case 53:
		// Next move only, in machine coordinates: a one-shot flag since
		// the parser only recognizes one G-word per line, so "G53 G0 X10"
		// cannot arrive as a single combined command.
		c.g53Override = true
	case 54, 55, 56, 57, 58, 59:
		c.Machine.GM.CoordSystem = gcodestate.CoordG54 + (cmd.Number - 54)
	case 61:
		if cmd.Subcode == 1 {
			c.Machine.GM.PathControl = gcodestate.PathExactPath
		} else {
			c.Machine.GM.PathControl = gcodestate.PathExactStop
		}
	case 64:
		c.Machine.GM.PathControl = gcodestate.PathContinuous
	case 80:
		c.Machine.GM.MotionMode = gcodestate.MotionCancel
	case 90:
		c.Machine.GM.Distance = gcodestate.DistanceAbsolute
	case 91:
		c.Machine.GM.Distance = gcodestate.DistanceIncremental
	case 92:
		if cmd.Subcode == 1 {
			for i := range c.Machine.GMX.OriginOffset {
				c.Machine.GMX.OriginOffset[i] = 0
			}
		} else {
			c.setOrigin(cmd)
		}
	case 93:
		c.Machine.GM.FeedRateMode = gcodestate.InverseTime
	case 94:
		c.Machine.GM.FeedRateMode = gcodestate.UnitsPerMinute
	}
	return nil
}

func (c *Controller) dispatchM(cmd *gcode.Command) error {
	switch cmd.Number {
	case 0, 1:
		c.Machine.RequestHold()
	case 2, 30:
		c.Machine.ProgramEnd()
	case 3:
		c.Machine.GM.SpindleMode = gcodestate.SpindleCW
		c.Machine.GM.SpindleSpeed = cmd.GetParameter('S', c.Machine.GM.SpindleSpeed)
	case 4:
		c.Machine.GM.SpindleMode = gcodestate.SpindleCCW
		c.Machine.GM.SpindleSpeed = cmd.GetParameter('S', c.Machine.GM.SpindleSpeed)
	case 5:
		c.Machine.GM.SpindleMode = gcodestate.SpindleOff
	case 6:
		return c.queueToolChange(cmd)
	case 7:
		c.Machine.GM.Coolant |= gcodestate.CoolantMist
	case 8:
		c.Machine.GM.Coolant |= gcodestate.CoolantFlood
	case 9:
		c.Machine.GM.Coolant = 0
	case 48:
		c.Machine.GMX.FeedOverrideEnable = true
		c.Machine.GMX.TraverseOverrideEnable = true
	case 49:
		clearOverride(&c.Machine.GMX.FeedOverrideEnable, &c.Machine.GMX.FeedOverrideFactor)
		clearOverride(&c.Machine.GMX.TraverseOverrideEnable, &c.Machine.GMX.TraverseOverrideFactor)
	case 50:
		switch cmd.Subcode {
		case 1:
			clearOverride(&c.Machine.GMX.FeedOverrideEnable, &c.Machine.GMX.FeedOverrideFactor)
		case 2:
			setOverride(&c.Machine.GMX.TraverseOverrideEnable, &c.Machine.GMX.TraverseOverrideFactor, cmd)
		case 3:
			clearOverride(&c.Machine.GMX.TraverseOverrideEnable, &c.Machine.GMX.TraverseOverrideFactor)
		default:
			setOverride(&c.Machine.GMX.FeedOverrideEnable, &c.Machine.GMX.FeedOverrideFactor, cmd)
		}
	case 51:
		if cmd.Subcode == 1 {
			clearOverride(&c.Machine.GMX.SpindleOverrideEnable, &c.Machine.GMX.SpindleOverrideFactor)
		} else {
			setOverride(&c.Machine.GMX.SpindleOverrideEnable, &c.Machine.GMX.SpindleOverrideFactor, cmd)
		}
	case 60:
		// Pallet change stop: treated as a program stop the operator must
		// cycle-start past, same as M0/M1.
		c.Machine.RequestHold()
	}
	return nil
}

func setOverride(enable *bool, factor *float64, cmd *gcode.Command) {
	*factor = cmd.GetParameter('P', 100) / 100
	*enable = true
}

func clearOverride(enable *bool, factor *float64) {
	*enable = false
	*factor = 1.0
}

func (c *Controller) setOrigin(cmd *gcode.Command) {
	for axis, letter := range axisLetters {
		if cmd.HasParameter(letter) {
			c.Machine.GMX.OriginOffset[axis] = c.Machine.GMX.AbsoluteMachinePosition[axis] - cmd.GetParameter(letter, 0)
		}
	}
}

// setCoordSystemOffset implements G10 L2 Pn: set the work offset for
// coordinate system n (1=G54..6=G59) directly to the given axis values.
// L20 (set so the current position becomes the given value) is not
// distinguished from L2 here, a disclosed simplification.
func (c *Controller) setCoordSystemOffset(cmd *gcode.Command) error {
	p := int(cmd.GetParameter('P', 1))
	idx := gcodestate.CoordG54 + (p - 1)
	if idx < gcodestate.CoordG54 || idx > gcodestate.CoordG59 {
		return fmt.Errorf("controller: G10 P%d out of range", p)
	}
	for axis, letter := range axisLetters {
		if !cmd.HasParameter(letter) {
			continue
		}
		v := cmd.GetParameter(letter, 0)
		c.Machine.GMX.CoordOffsets[idx][axis] = v
		if idx == gcodestate.CoordG54 {
			_ = config.SaveFloat(c.KV, config.AxisKey(axis), v)
		}
	}
	return nil
}

func (c *Controller) home(cmd *gcode.Command) error {
	homeAll := true
	for _, l := range axisLetters {
		if cmd.HasParameter(l) {
			homeAll = false
		}
	}
	for i, l := range axisLetters {
		if !homeAll && !cmd.HasParameter(l) {
			continue
		}
		if es, ok := c.endstops[i]; ok {
			c.homeAxisWithEndstop(i, es)
		} else {
			c.Machine.GMX.AbsoluteMachinePosition[i] = 0
		}
		c.Machine.Homed[i] = true
	}
	c.Machine.GMX.G28Position = c.Machine.GMX.AbsoluteMachinePosition
	return nil
}

// homeAxisWithEndstop seeks axis toward its configured endstop, arming a
// TriggerSync that fires either on a confirmed sample match or on
// SetTimeout's deadline, so a never-triggering sensor (no hardware
// attached, or a broken switch) still returns instead of hanging the
// foreground loop forever.
func (c *Controller) homeAxisWithEndstop(axis int, es *homing.Endstop) {
	ts := homing.NewTriggerSync(uint8(axis), homingExpireReason)
	triggered := false
	ts.AddSignal(func(reason uint8) { triggered = true })

	now := core.GetTime()
	ts.SetTimeout(now + homingTimeoutTicks)
	es.Home(now, homingSampleTicks, homingSampleCount, homingRestTicks, true, ts, homingTriggerReason)

	for !triggered {
		core.SetTime(core.GetTime() + homingSampleTicks)
		core.ProcessTimers()
	}

	c.Machine.GMX.AbsoluteMachinePosition[axis] = 0
}

func (c *Controller) queueDwell(cmd *gcode.Command) error {
	b := c.Ring.Alloc()
	if b == nil {
		return fmt.Errorf("controller: planner ring full")
	}
	b.Op = planner.OpDwell
	b.Values[0] = cmd.GetParameter('P', 0)
	c.Ring.Commit()
	c.queuedAdded++
	return nil
}

func (c *Controller) queueToolChange(cmd *gcode.Command) error {
	b := c.Ring.Alloc()
	if b == nil {
		return fmt.Errorf("controller: planner ring full")
	}
	tool := c.pendingTool
	if cmd.HasParameter('T') {
		tool = int(cmd.GetParameter('T', float64(tool)))
	}
	b.Op = planner.OpToolChange
	b.Values[0] = float64(tool)
	c.Ring.Commit()
	c.queuedAdded++
	return nil
}

func (c *Controller) goToStoredPosition(target [gcodestate.AxisCount]float64) error {
	if err := c.Machine.CheckSoftLimits(target); err != nil {
		return err
	}
	b := c.Ring.Alloc()
	if b == nil {
		return nil
	}
	planner.Aline(b, c.Machine.GMX.AbsoluteMachinePosition, target, c.axisLimits(), c.Machine.GM.FeedRate)
	b.GState = c.Machine.GM.Clone()
	c.Ring.Commit()
	c.queuedAdded++
	c.Machine.GMX.AbsoluteMachinePosition = target
	return nil
}

// axisLetters maps axis index to its word letter, X through C.
var axisLetters = [gcodestate.AxisCount]byte{'X', 'Y', 'Z', 'A', 'B', 'C'}

// parseAxisWords reads X/Y/Z/A/B/C and F words off cmd, converting
// inch-mode values to mm, and updates the active feed rate as a side
// effect (every move-bearing G-code shares this behavior).
func (c *Controller) parseAxisWords(cmd *gcode.Command) (params [gcodestate.AxisCount]float64, present [gcodestate.AxisCount]bool) {
	for i, l := range axisLetters {
		if cmd.HasParameter(l) {
			present[i] = true
			params[i] = cmd.GetParameter(l, 0)
			if c.Machine.GM.Units == gcodestate.UnitsInches {
				params[i] *= 25.4
			}
		}
	}
	if cmd.HasParameter('F') {
		c.Machine.GM.FeedRate = cmd.GetParameter('F', c.Machine.GM.FeedRate)
	}
	return params, present
}

func (c *Controller) queueLinearMove(cmd *gcode.Command) error {
	params, present := c.parseAxisWords(cmd)

	override := c.g53Override
	c.g53Override = false
	var savedOffset, savedOrigin [gcodestate.AxisCount]float64
	if override {
		idx := c.Machine.GM.CoordSystem
		savedOffset = c.Machine.GMX.CoordOffsets[idx]
		savedOrigin = c.Machine.GMX.OriginOffset
		c.Machine.GMX.CoordOffsets[idx] = [gcodestate.AxisCount]float64{}
		c.Machine.GMX.OriginOffset = [gcodestate.AxisCount]float64{}
	}
	target := c.Machine.SetModelTarget(params, present)
	if override {
		c.Machine.GMX.CoordOffsets[c.Machine.GM.CoordSystem] = savedOffset
		c.Machine.GMX.OriginOffset = savedOrigin
	}

	if err := c.Machine.CheckSoftLimits(target); err != nil {
		return err
	}

	b := c.Ring.Alloc()
	if b == nil {
		return fmt.Errorf("controller: planner ring full, move not accepted")
	}
	planner.Aline(b, c.Machine.GMX.AbsoluteMachinePosition, target, c.axisLimits(), c.Machine.GM.FeedRate)
	b.GState = c.Machine.GM.Clone()
	c.Ring.Commit()
	c.queuedAdded++

	c.Machine.GMX.AbsoluteMachinePosition = target
	return nil
}

// queueArc decomposes a G2/G3 arc (IJK center offset, in the active
// plane) into chord segments bounded by the configured chordal
// tolerance, queueing each as an ordinary linear move. Non-plane axes
// interpolate linearly across the arc's parameter, giving a helical
// move when Z (or an ABC axis) differs between start and target.
// R-mode arcs are not supported.
func (c *Controller) queueArc(cmd *gcode.Command, clockwise bool) error {
	params, present := c.parseAxisWords(cmd)

	start := c.Machine.GMX.AbsoluteMachinePosition
	override := c.g53Override
	c.g53Override = false
	var savedOffset, savedOrigin [gcodestate.AxisCount]float64
	if override {
		idx := c.Machine.GM.CoordSystem
		savedOffset = c.Machine.GMX.CoordOffsets[idx]
		savedOrigin = c.Machine.GMX.OriginOffset
		c.Machine.GMX.CoordOffsets[idx] = [gcodestate.AxisCount]float64{}
		c.Machine.GMX.OriginOffset = [gcodestate.AxisCount]float64{}
	}
	target := c.Machine.SetModelTarget(params, present)
	if override {
		c.Machine.GMX.CoordOffsets[c.Machine.GM.CoordSystem] = savedOffset
		c.Machine.GMX.OriginOffset = savedOrigin
	}

	axis1, axis2 := planeAxes(c.Machine.GM.Plane)
	iLetter, jLetter := arcOffsetLetters(c.Machine.GM.Plane)
	offset1 := cmd.GetParameter(iLetter, 0)
	offset2 := cmd.GetParameter(jLetter, 0)
	if c.Machine.GM.Units == gcodestate.UnitsInches {
		offset1 *= 25.4
		offset2 *= 25.4
	}
	center1 := start[axis1] + offset1
	center2 := start[axis2] + offset2

	radius := math.Hypot(start[axis1]-center1, start[axis2]-center2)
	if radius <= 1e-9 {
		return fmt.Errorf("controller: degenerate arc radius")
	}

	startAngle := math.Atan2(start[axis2]-center2, start[axis1]-center1)
	endAngle := math.Atan2(target[axis2]-center2, target[axis1]-center1)
	sweep := endAngle - startAngle
	if clockwise {
		for sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else {
		for sweep <= 0 {
			sweep += 2 * math.Pi
		}
	}

	tol := c.Config.ChordalTolerance
	if tol <= 0 || tol >= radius {
		tol = 0.01
	}
	maxSegAngle := 2 * math.Acos(1-tol/radius)
	if maxSegAngle <= 0 || math.IsNaN(maxSegAngle) {
		maxSegAngle = 0.1
	}
	segments := int(math.Abs(sweep)/maxSegAngle) + 1

	prev := start
	for s := 1; s <= segments; s++ {
		frac := float64(s) / float64(segments)
		angle := startAngle + sweep*frac

		seg := start
		for a := 0; a < gcodestate.AxisCount; a++ {
			seg[a] = start[a] + (target[a]-start[a])*frac
		}
		seg[axis1] = center1 + radius*math.Cos(angle)
		seg[axis2] = center2 + radius*math.Sin(angle)
		if s == segments {
			seg = target
		}

		if err := c.Machine.CheckSoftLimits(seg); err != nil {
			return err
		}
		b := c.Ring.Alloc()
		if b == nil {
			return fmt.Errorf("controller: planner ring full mid-arc")
		}
		planner.Aline(b, prev, seg, c.axisLimits(), c.Machine.GM.FeedRate)
		b.GState = c.Machine.GM.Clone()
		c.Ring.Commit()
		c.queuedAdded++
		prev = seg
	}

	c.Machine.GMX.AbsoluteMachinePosition = target
	return nil
}

func planeAxes(p gcodestate.Plane) (a1, a2 int) {
	switch p {
	case gcodestate.PlaneXZ:
		return gcodestate.AxisX, gcodestate.AxisZ
	case gcodestate.PlaneYZ:
		return gcodestate.AxisY, gcodestate.AxisZ
	default:
		return gcodestate.AxisX, gcodestate.AxisY
	}
}

func arcOffsetLetters(p gcodestate.Plane) (byte, byte) {
	switch p {
	case gcodestate.PlaneXZ:
		return 'I', 'K'
	case gcodestate.PlaneYZ:
		return 'J', 'K'
	default:
		return 'I', 'J'
	}
}

func (c *Controller) axisLimits() [gcodestate.AxisCount]planner.AxisLimits {
	var out [gcodestate.AxisCount]planner.AxisLimits
	for i, name := range config.AxisOrder {
		axis, ok := c.Config.Axes[name]
		if !ok {
			continue
		}
		out[i] = planner.AxisLimits{VelocityMax: axis.VelocityMax, Jerk: axis.Jerk}
	}
	return out
}

// parsePin extracts the trailing digits of a config pin string like
// "gpio20" into a core.GPIOPin.
func parsePin(s string) core.GPIOPin {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n = n*10 + int(s[i]-'0')
		}
	}
	return core.GPIOPin(n)
}
