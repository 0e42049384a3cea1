package commands

const (
	_etc = "/usr/local/etc/com.github.xformhub"
	_var = "/usr/local/var/com.github.xformhub"

	DEFAULT_WORKDIR     = _var + "/sheets"
	DEFAULT_CREDENTIALS = _etc + "/sheets/.google/credentials.json"
)
