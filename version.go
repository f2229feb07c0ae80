package gifopt

// Version is the application version, shown in the splash banner and API root.
const Version = "1.2.0"
