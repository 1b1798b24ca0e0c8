package models

// CommandType names an observer command.
type CommandType string

const (
	CommandStartSimulation  CommandType = "startSimulation"
	CommandStopSimulation   CommandType = "stopSimulation"
	CommandResetRobot       CommandType = "resetRobot"
	CommandSetGoal          CommandType = "setGoal"
	CommandSpawnObstacles   CommandType = "spawnMovingObstacles"
	CommandMoveRobot        CommandType = "moveRobot"
	CommandResetEnvironment CommandType = "resetEnvironment"
)

// observers written against either naming style are accepted
var commandAliases = map[string]CommandType{
	"startSimulation":        CommandStartSimulation,
	"start_simulation":       CommandStartSimulation,
	"stopSimulation":         CommandStopSimulation,
	"stop_simulation":        CommandStopSimulation,
	"resetRobot":             CommandResetRobot,
	"reset_robot":            CommandResetRobot,
	"setGoal":                CommandSetGoal,
	"set_goal":               CommandSetGoal,
	"spawnMovingObstacles":   CommandSpawnObstacles,
	"spawn_moving_obstacles": CommandSpawnObstacles,
	"moveRobot":              CommandMoveRobot,
	"move_robot":             CommandMoveRobot,
	"resetEnvironment":       CommandResetEnvironment,
	"reset_environment":      CommandResetEnvironment,
}

// ParseCommandType resolves a wire name, accepting both camelCase and snake_case.
func ParseCommandType(name string) (CommandType, bool) {
	t, ok := commandAliases[name]
	return t, ok
}

// Direction for manual moves.
const (
	DirectionUp    = "up"
	DirectionDown  = "down"
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// Command is one queued mutation request. Result, when non-nil, receives
// exactly one value once the command has been applied at a tick boundary.
type Command struct {
	Type      CommandType `json:"type"`
	X         int         `json:"x,omitempty"`
	Y         int         `json:"y,omitempty"`
	Count     int         `json:"count,omitempty"`
	Direction string      `json:"direction,omitempty"`
	SessionID string      `json:"session_id,omitempty"`

	Result chan error `json:"-"`
}

// NewCommand returns a command with a buffered result channel.
func NewCommand(t CommandType) Command {
	return Command{Type: t, Result: make(chan error, 1)}
}

// GoalPayload is the data of setGoal.
type GoalPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SpawnPayload is the data of spawnMovingObstacles.
type SpawnPayload struct {
	Count int `json:"count"`
}

// MovePayload is the data of moveRobot.
type MovePayload struct {
	Direction string `json:"direction"`
}
