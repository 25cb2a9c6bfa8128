package security

import "regexp"

// Forbidden-pattern categories. The category name is carried on the
// rejection error and shown in validation reports.
const (
	CategoryCodeExecution      = "code execution"
	CategoryShellExecution     = "shell execution"
	CategoryFilesystemAccess   = "filesystem access"
	CategoryDynamicInclusion   = "dynamic inclusion"
	CategoryDynamicDispatch    = "dynamic dispatch"
	CategoryVariableVariables  = "variable variables"
	CategoryOutputBuffering    = "output buffering"
	CategoryDeserialization    = "deserialization"
	CategoryStreamWrappers     = "stream wrappers"
	CategoryProcessNetwork     = "process/socket/network"
	CategoryDataStoreDrivers   = "raw data-store drivers"
	CategoryPatternModifiers   = "dangerous pattern modifiers"
	CategoryMailHeaders        = "mail/header manipulation"
	CategorySuperglobals       = "session/superglobal access"
	CategoryProcessTermination = "process termination"
	CategoryIntrospection      = "introspection/reflection"
	CategoryInstantiation      = "object instantiation"
	CategoryStaticDispatch     = "static dispatch"
	CategoryThrow              = "control flow via exception"
	CategoryConstantDefinition = "constant definition"
	CategoryAnonymousFunctions = "anonymous functions"
	CategoryEnvironment        = "environment tampering"
	CategoryScopeInjection     = "scope injection"
	CategoryProcessControl     = "process control"
	CategoryHandlerBinding     = "handler registration"
	CategoryErrorLogging       = "log/file output"
	CategoryFileUploads        = "uploaded file handling"
	CategoryAutoloading        = "dynamic code loading"
	CategoryClosureBinding     = "closure binding"
	CategoryBacktickShell      = "backtick shell"
)

// ForbiddenPattern pairs a compiled matcher with its attack category.
type ForbiddenPattern struct {
	Category string
	Pattern  *regexp.Regexp
}

// forbiddenPatterns is scanned in order; the first match rejects the
// expression. The matchers are deliberately plain text patterns over the
// unescaped expression, not a syntax analysis; obfuscated expressions that
// assemble call names at render time slip past them, and that boundary is
// kept as-is so that the set of accepted templates stays stable.
var forbiddenPatterns = []ForbiddenPattern{
	{CategoryCodeExecution, regexp.MustCompile(`\b(?:eval|assert|create_function)\s*\(`)},
	{CategoryShellExecution, regexp.MustCompile(`\b(?:shell_exec|exec|system|passthru|popen|proc_open|pcntl_exec|escapeshellcmd|escapeshellarg)\s*\(`)},
	{CategoryBacktickShell, regexp.MustCompile("`")},
	{CategoryFilesystemAccess, regexp.MustCompile(`\b(?:fopen|file_get_contents|file_put_contents|file_exists|readfile|fwrite|fputs|fread|fgets|unlink|rename|copy|mkdir|rmdir|chmod|chown|chgrp|touch|glob|opendir|readdir|scandir|tempnam|tmpfile|symlink|link|realpath|pathinfo|dirname|basename|file)\s*\(`)},
	{CategoryDynamicInclusion, regexp.MustCompile(`\b(?:include|include_once|require|require_once)\b`)},
	{CategoryDynamicDispatch, regexp.MustCompile(`\b(?:call_user_func|call_user_func_array|array_map|array_walk|array_filter|array_reduce|usort|uasort|uksort|forward_static_call|forward_static_call_array)\s*\(`)},
	{CategoryDynamicDispatch, regexp.MustCompile(`\$\w+\s*\(`)},
	{CategoryVariableVariables, regexp.MustCompile(`\$\s*\$`)},
	{CategoryVariableVariables, regexp.MustCompile(`\$\{`)},
	{CategoryOutputBuffering, regexp.MustCompile(`\bob_[a-z_]+\s*\(`)},
	{CategoryDeserialization, regexp.MustCompile(`\b(?:unserialize|wddx_deserialize|yaml_parse)\s*\(`)},
	{CategoryStreamWrappers, regexp.MustCompile(`(?i)\b(?:php|phar|data|expect|zip|glob|ssh2|ogg|rar|filter)://`)},
	{CategoryProcessNetwork, regexp.MustCompile(`\b(?:fsockopen|pfsockopen|stream_socket_client|stream_socket_server|stream_context_create|socket_create|socket_connect|curl_init|curl_exec|curl_multi_exec|curl_setopt|ftp_connect|ssh2_connect)\s*\(`)},
	{CategoryDataStoreDrivers, regexp.MustCompile(`\b(?:mysql_[a-z_]+|mysqli_[a-z_]+|pg_[a-z_]+|sqlite_[a-z_]+|sqlsrv_[a-z_]+|oci_[a-z_]+|odbc_[a-z_]+|db2_[a-z_]+)\s*\(`)},
	{CategoryPatternModifiers, regexp.MustCompile(`\bpreg_replace_callback(?:_array)?\s*\(`)},
	{CategoryPatternModifiers, regexp.MustCompile(`\bpreg_replace\s*\(\s*['"].*[/#~%|][a-zA-Z]*e[a-zA-Z]*['"]`)},
	{CategoryMailHeaders, regexp.MustCompile(`\b(?:mail|mb_send_mail|header|header_remove|setcookie|setrawcookie)\s*\(`)},
	{CategorySuperglobals, regexp.MustCompile(`\$_(?:GET|POST|REQUEST|COOKIE|SESSION|SERVER|ENV|FILES)\b`)},
	{CategorySuperglobals, regexp.MustCompile(`\$GLOBALS\b`)},
	{CategorySuperglobals, regexp.MustCompile(`\bsession_[a-z_]+\s*\(`)},
	{CategoryProcessTermination, regexp.MustCompile(`\b(?:exit|die)\b`)},
	{CategoryIntrospection, regexp.MustCompile(`\bReflection\w*\b`)},
	{CategoryIntrospection, regexp.MustCompile(`\b(?:get_defined_vars|get_defined_functions|get_declared_classes|get_class_methods|get_object_vars|get_class|function_exists|method_exists|class_exists|debug_backtrace|debug_print_backtrace)\s*\(`)},
	{CategoryInstantiation, regexp.MustCompile(`\bnew\s+[\\$A-Za-z_]`)},
	{CategoryStaticDispatch, regexp.MustCompile(`::`)},
	{CategoryThrow, regexp.MustCompile(`\bthrow\b`)},
	{CategoryConstantDefinition, regexp.MustCompile(`\b(?:define|defined|constant)\s*\(`)},
	{CategoryAnonymousFunctions, regexp.MustCompile(`\bfunction\s*\(`)},
	{CategoryAnonymousFunctions, regexp.MustCompile(`\bfn\s*\(`)},
	{CategoryEnvironment, regexp.MustCompile(`\b(?:getenv|putenv|apache_setenv|ini_get|ini_set|ini_alter|ini_restore|dl|set_time_limit|error_reporting|phpinfo|php_uname|get_cfg_var)\s*\(`)},
	{CategoryScopeInjection, regexp.MustCompile(`\b(?:extract|parse_str|compact|import_request_variables)\s*\(`)},
	{CategoryProcessControl, regexp.MustCompile(`\b(?:pcntl_[a-z_]+|posix_[a-z_]+|proc_[a-z_]+)\s*\(`)},
	{CategoryHandlerBinding, regexp.MustCompile(`\b(?:set_error_handler|set_exception_handler|register_shutdown_function|register_tick_function|assert_options)\s*\(`)},
	{CategoryErrorLogging, regexp.MustCompile(`\b(?:error_log|syslog|openlog)\s*\(`)},
	{CategoryFileUploads, regexp.MustCompile(`\b(?:move_uploaded_file|is_uploaded_file)\s*\(`)},
	{CategoryAutoloading, regexp.MustCompile(`\b(?:spl_autoload_register|spl_autoload_unregister|class_alias)\s*\(`)},
	{CategoryClosureBinding, regexp.MustCompile(`\bClosure\b`)},
}

// allowedFunctions is the static allow-set of utility functions an
// expression may call. Additions come only from deployment configuration;
// nothing is ever removed at runtime.
var allowedFunctions = []string{
	// string
	"addslashes", "bin2hex", "chr", "html_entity_decode", "htmlentities",
	"htmlspecialchars", "htmlspecialchars_decode", "lcfirst", "ltrim",
	"nl2br", "number_format", "ord", "rtrim", "sprintf", "str_contains",
	"str_ends_with", "str_ireplace", "str_pad", "str_repeat", "str_replace",
	"str_starts_with", "strcasecmp", "strcmp", "strip_tags", "stripos",
	"stripslashes", "strlen", "strpos", "strrev", "strstr", "strtolower",
	"strtoupper", "substr", "substr_count", "trim", "ucfirst", "ucwords",
	"wordwrap",

	// numeric
	"abs", "ceil", "floatval", "floor", "fmod", "intdiv", "intval", "log",
	"max", "min", "pi", "pow", "round", "sqrt",

	// array/collection
	"array_diff", "array_intersect", "array_key_exists", "array_keys",
	"array_merge", "array_reverse", "array_search", "array_slice",
	"array_sum", "array_unique", "array_values", "count", "explode",
	"implode", "in_array", "join", "range",

	// type introspection
	"boolval", "ctype_alnum", "ctype_alpha", "ctype_digit", "gettype",
	"is_array", "is_bool", "is_float", "is_int", "is_null", "is_numeric",
	"is_scalar", "is_string", "strval",

	// date/time
	"date", "gmdate", "microtime", "mktime", "strtotime", "time",

	// encode/hash
	"base64_decode", "base64_encode", "crc32", "json_encode", "md5",
	"rawurldecode", "rawurlencode", "sha1", "urldecode", "urlencode",
}

// constructExemptions are language-level constructs that look like calls but
// are not functions, so the allow-set check skips them.
var constructExemptions = map[string]struct{}{
	"isset": {}, // membership test
	"empty": {}, // emptiness test
	"array": {}, // literal collection syntax
	"unset": {},
	"print": {}, // output statement
}
