package builders

// Names provided by the runtime boilerplate that generated code refers to.
const (
	RouteTable    = "routes"
	ListenerSet   = "listeners"
	Dispatch      = "dispatch"
	HandleError   = "handleError"
	NotFound      = "notFound"
	LogValue      = "logValue"
	LogError      = "logError"
	RequestPath   = "requestPath"
	RespondText   = "respondText"
	NewRouteTable = "newRouteTable"
	NewListeners  = "newListenerSet"
)

// Methods of the runtime route table and listener set.
const (
	MethodRegister      = "register"
	MethodHas           = "has"
	MethodServe         = "serve"
	MethodStart         = "start"
	MethodTrack         = "track"
	MethodServeAll      = "serveAll"
	MethodCloseOnSignal = "closeOnSignal"
)
