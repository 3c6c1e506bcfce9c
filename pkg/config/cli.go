package config

import "github.com/alecthomas/kong"

type Cli struct {
	Version kong.VersionFlag

	LogLevel   string `kong:"name=log-level,env=LOG_LEVEL,default=info,help='Set log level.'"`
	LogJSON    bool   `kong:"name=log-json,env=LOG_JSON,default=false,help='Enable JSON logging output.'"`
	LogCaller  bool   `kong:"name=log-caller,env=LOG_CALLER,default=false,help='Add file:line of the caller to log output.'"`
	LogNoColor bool   `kong:"name=log-nocolor,env=LOG_NOCOLOR,default=false,help='Disable colorized output.'"`

	Codec    string   `kong:"name=codec,env=UNPAYLOAD_CODEC,enum='auto,deflate,lzma',default=auto,help='Payload compression (auto, deflate or lzma).'"`
	Offset   int64    `kong:"name=offset,default=0,help='Offset of the payload within the source file. (eg. size of the installer stub)'"`
	Digest   string   `kong:"name=digest,help='Expected payload digest. (eg. sha256:...)'"`
	Includes []string `kong:"name=include,help='Include a subset of files/dirs from the payload.'"`
	Progress bool     `kong:"name=progress,default=false,help='Display a progress bar.'"`
	RmDist   bool     `kong:"name=rm-dist,default=false,help='Removes dist folder.'"`

	Source string `kong:"arg,required,name=source,type=existingfile,help='Payload or installer file. (eg. ./setup.bin)'"`
	Dist   string `kong:"arg,required,name=dist,type=path,help='Dist folder. (eg. ./dist)'"`
}
