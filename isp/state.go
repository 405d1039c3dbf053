package isp

// State is the position of a Session in the update state machine.
type State int

// States in the order an update visits them. Done and Failed are terminal.
const (
	StateIdle State = iota
	StateOUIInstalled
	StateISPDriverLoading
	StateISPDriverRunning
	StateFwUpdateMode
	StateSendingCerts
	StateSendingESM
	StateSendingApp
	StateSendingAppInit
	StateSendingCMDB
	StateSendingAppID
	StateInstalling
	StateReset
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateOUIInstalled:     "oui_installed",
	StateISPDriverLoading: "isp_driver_loading",
	StateISPDriverRunning: "isp_driver_running",
	StateFwUpdateMode:     "fw_update_mode",
	StateSendingCerts:     "sending_certificates",
	StateSendingESM:       "sending_esm",
	StateSendingApp:       "sending_app",
	StateSendingAppInit:   "sending_app_init",
	StateSendingCMDB:      "sending_cmdb",
	StateSendingAppID:     "sending_app_id",
	StateInstalling:       "installing",
	StateReset:            "reset",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether s ends an update.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
