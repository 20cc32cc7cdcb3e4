package dirs

// StateDir is the root directory for all agentherd runtime state files,
// relative to the project working directory.
const StateDir = "._agentherd"

// ConfigDir is the directory where settings files are loaded from,
// relative to the project working directory.
const ConfigDir = ".agentherd"

// ConfigFile is the default settings file name at the project root.
const ConfigFile = "agentherd.yaml"
