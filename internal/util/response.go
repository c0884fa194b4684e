package util

type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"success": false, "message": message}
}

func Success(message string) Envelope {
	return Envelope{"success": true, "message": message}
}

func Data(message string, value any) Envelope {
	return Envelope{"success": true, "message": message, "data": value}
}
