package commands

const (
	_etc = "/usr/local/etc/xform-sheets"
	_var = "/usr/local/var/xform-sheets"

	DEFAULT_WORKDIR     = _var
	DEFAULT_CREDENTIALS = _etc + "/.google/credentials.json"
)
