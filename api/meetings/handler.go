package meetings

import "backend/calsync"

type MeetingsHandler struct {
	Engine *calsync.Engine
}
