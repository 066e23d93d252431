package stt

import (
	"sync"

	"github.com/iabetor/taigivoice/internal/logger"
)

// State 单次识别请求的状态。
type State int

const (
	// StateIdle 尚未收到音频。
	StateIdle State = iota
	// StateListening 正在准备音频（重采样、裁剪）。
	StateListening
	// StateProcessing 正在请求识别服务。
	StateProcessing
	// StateResolved 已得到文本，终态。
	StateResolved
	// StateFailed 没有任何文本，终态。
	StateFailed
)

var stateNames = [...]string{
	"Idle",
	"Listening",
	"Processing",
	"Resolved",
	"Failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Terminal 是否为终态。
func (s State) Terminal() bool {
	return s == StateResolved || s == StateFailed
}

// StateMachine 管理线程安全的状态转换。
type StateMachine struct {
	mu       sync.RWMutex
	current  State
	onChange func(from, to State)
}

// NewStateMachine 创建一个初始状态为 Idle 的状态机。
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
	}
}

// SetOnChange 注册状态变化时的回调函数。
func (sm *StateMachine) SetOnChange(fn func(from, to State)) {
	sm.mu.Lock()
	sm.onChange = fn
	sm.mu.Unlock()
}

// Current 返回当前状态。
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Transition 尝试切换状态。只有合法的转换才会生效：
//
//	Idle       → Listening   （收到音频）
//	Listening  → Processing  （音频准备完毕）
//	Listening  → Failed      （音频无法解析）
//	Processing → Resolved    （得到文本）
//	Processing → Failed      （所有服务都没有结果）
//
// Resolved 和 Failed 是终态，只能通过 Reset 离开。
func (sm *StateMachine) Transition(to State) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !validTransition(sm.current, to) {
		logger.Warnf("[stt] 非法转换 %s → %s", sm.current, to)
		return false
	}

	from := sm.current
	sm.current = to
	logger.Debugf("[stt] %s → %s", from, to)

	if sm.onChange != nil {
		sm.onChange(from, to)
	}
	return true
}

// Reset 无条件重置为 Idle，供复用状态机的调用方使用。
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	from := sm.current
	sm.current = StateIdle
	if from != StateIdle {
		logger.Debugf("[stt] 重置 %s → Idle", from)
		if sm.onChange != nil {
			sm.onChange(from, StateIdle)
		}
	}
}

func validTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateListening
	case StateListening:
		return to == StateProcessing || to == StateFailed
	case StateProcessing:
		return to == StateResolved || to == StateFailed
	}
	return false
}
