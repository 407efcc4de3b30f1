package protocol

// EAuthSessionGuardType enumerates confirmation methods Steam may require
// to complete a credentials-based auth session.
type EAuthSessionGuardType int32

const (
	EAuthSessionGuardType_k_EAuthSessionGuardType_Unknown            EAuthSessionGuardType = 0
	EAuthSessionGuardType_k_EAuthSessionGuardType_None                EAuthSessionGuardType = 1
	EAuthSessionGuardType_k_EAuthSessionGuardType_EmailCode            EAuthSessionGuardType = 2
	EAuthSessionGuardType_k_EAuthSessionGuardType_DeviceCode           EAuthSessionGuardType = 3
	EAuthSessionGuardType_k_EAuthSessionGuardType_DeviceConfirmation  EAuthSessionGuardType = 4
	EAuthSessionGuardType_k_EAuthSessionGuardType_EmailConfirmation   EAuthSessionGuardType = 5
	EAuthSessionGuardType_k_EAuthSessionGuardType_MachineToken        EAuthSessionGuardType = 6
)

// EAuthTokenPlatformType identifies which kind of client is authenticating.
type EAuthTokenPlatformType int32

const (
	EAuthTokenPlatformType_k_EAuthTokenPlatformType_Unknown     EAuthTokenPlatformType = 0
	EAuthTokenPlatformType_k_EAuthTokenPlatformType_SteamClient EAuthTokenPlatformType = 1
	EAuthTokenPlatformType_k_EAuthTokenPlatformType_WebBrowser  EAuthTokenPlatformType = 2
	EAuthTokenPlatformType_k_EAuthTokenPlatformType_MobileApp   EAuthTokenPlatformType = 3
)

// ESessionPersistence controls whether a web auth session survives
// across browser restarts.
type ESessionPersistence int32

const (
	ESessionPersistence_k_ESessionPersistence_Invalid     ESessionPersistence = -1
	ESessionPersistence_k_ESessionPersistence_Ephemeral   ESessionPersistence = 0
	ESessionPersistence_k_ESessionPersistence_Persistent  ESessionPersistence = 1
)
