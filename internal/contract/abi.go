package contract

// examPaperABI is the interface of the deployed exam paper registry.
const examPaperABI = `[
	{"type":"constructor","inputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"approvePaper","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"_paperId","type":"uint256"},{"name":"_encryptionKey","type":"string"}]},
	{"type":"function","name":"setExamTime","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"_paperId","type":"uint256"},{"name":"_startTime","type":"uint256"}]},
	{"type":"function","name":"uploadPaper","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"_ipfsHash","type":"string"}]},
	{"type":"function","name":"accessPaper","stateMutability":"view",
	 "inputs":[{"name":"_paperId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"admin","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"paperCount","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"papers","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"}],
	 "outputs":[{"name":"ipfsHash","type":"string"},{"name":"encryptionKey","type":"string"},
	            {"name":"startTime","type":"uint256"},{"name":"approved","type":"bool"}]},
	{"type":"event","name":"ExamTimeSet","anonymous":false,
	 "inputs":[{"indexed":false,"name":"paperId","type":"uint256"},{"indexed":false,"name":"startTime","type":"uint256"}]},
	{"type":"event","name":"PaperAccessed","anonymous":false,
	 "inputs":[{"indexed":false,"name":"paperId","type":"uint256"},{"indexed":false,"name":"encryptionKey","type":"string"}]},
	{"type":"event","name":"PaperApproved","anonymous":false,
	 "inputs":[{"indexed":false,"name":"paperId","type":"uint256"}]},
	{"type":"event","name":"PaperUploaded","anonymous":false,
	 "inputs":[{"indexed":false,"name":"paperId","type":"uint256"},{"indexed":false,"name":"ipfsHash","type":"string"}]}
]`
