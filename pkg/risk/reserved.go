package risk

// reservedNames is the built-in list of protected targets: operational role
// names whose impersonation enables phishing, plus a curated set of
// high-value brand handles that are perennial spoofing targets. Checked only
// when Options.IncludeReserved is set.
var reservedNames = []string{
	// operational / role accounts
	"abuse",
	"account",
	"accounts",
	"admin",
	"administrator",
	"api",
	"billing",
	"console",
	"contact",
	"dashboard",
	"demo",
	"dev",
	"developer",
	"everyone",
	"ftp",
	"guest",
	"help",
	"helpdesk",
	"hostmaster",
	"info",
	"login",
	"mail",
	"mailer-daemon",
	"moderator",
	"no-reply",
	"noreply",
	"official",
	"password",
	"payments",
	"portal",
	"postmaster",
	"register",
	"root",
	"sales",
	"security",
	"settings",
	"signin",
	"signup",
	"smtp",
	"staff",
	"status",
	"support",
	"sysadmin",
	"system",
	"team",
	"test",
	"verified",
	"webmaster",
	"www",

	// high-value brand handles
	"amazon",
	"apple",
	"bitcoin",
	"coinbase",
	"discord",
	"facebook",
	"github",
	"gitlab",
	"google",
	"instagram",
	"metamask",
	"microsoft",
	"netflix",
	"paypal",
	"slack",
	"steam",
	"telegram",
	"twitter",
	"whatsapp",
}

// ReservedNames returns a copy of the built-in reserved-name list.
func ReservedNames() []string {
	out := make([]string, len(reservedNames))
	copy(out, reservedNames)
	return out
}
